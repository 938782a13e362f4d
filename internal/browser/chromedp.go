// Package browser implements the harness.Driver capability on top of a
// real Chrome instance driven over the DevTools protocol.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cironolaenvision/test-html/internal/config"
	"github.com/cironolaenvision/test-html/internal/harness"
)

// Compile-time check to ensure Manager implements the factory interface.
var _ harness.DriverFactory = (*Manager)(nil)

// Manager owns the Chrome exec allocator and mints one isolated browser
// context per verification session.
type Manager struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	cfg             *config.BrowserConfig
	logger          *zap.Logger
	sem             *semaphore.Weighted
	activeWg        sync.WaitGroup
}

// NewManager starts the allocator with the harness's Chrome flag set.
func NewManager(cfg *config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("incognito", true),
		chromedp.Flag("mute-audio", true),
		chromedp.IgnoreCertErrors,
	)
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}

	allocatorCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &Manager{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: cancel,
		cfg:             cfg,
		logger:          logger,
		sem:             semaphore.NewWeighted(int64(maxSessions)),
	}, nil
}

// NewDriver acquires a browser slot and starts a fresh browser context
// with request interception and console collection enabled. The returned
// driver is exclusively owned by the calling session.
func (m *Manager) NewDriver(ctx context.Context) (harness.Driver, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire browser slot: %w", err)
	}
	m.activeWg.Add(1)

	browserCtx, cancel := chromedp.NewContext(
		m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
	)
	var once sync.Once
	d := &driver{
		ctx:    browserCtx,
		logger: m.logger,
		close: func() {
			once.Do(func() {
				cancel()
				m.sem.Release(1)
				m.activeWg.Done()
			})
		},
	}
	if err := d.start(); err != nil {
		d.close()
		return nil, fmt.Errorf("start browser session: %w", err)
	}
	return d, nil
}

// Shutdown cancels the allocator and waits for active sessions to
// finish, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down browser manager")
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	done := make(chan struct{})
	go func() {
		m.activeWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("all browser sessions finished")
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout reached with sessions still active")
		return ctx.Err()
	}
}

// driver is one session's browser context. Console entries accumulate in
// a mutex-guarded buffer as DevTools events arrive and are drained by
// ConsoleLogs, preserving the harness's poll model.
type driver struct {
	ctx    context.Context
	logger *zap.Logger
	close  func()

	mu          sync.Mutex
	interceptor harness.InterceptFunc
	entries     []harness.ConsoleLogEntry
}

func (d *driver) start() error {
	chromedp.ListenTarget(d.ctx, d.handleEvent)
	return chromedp.Run(d.ctx, fetch.Enable(), cdplog.Enable())
}

func (d *driver) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		// Fulfilling must not block the event loop.
		go d.fulfill(e)
	case *cdpruntime.EventExceptionThrown:
		d.append(exceptionEntry(e))
	case *cdpruntime.EventConsoleAPICalled:
		d.append(consoleEntry(e))
	case *cdplog.EventEntryAdded:
		d.append(browserEntry(e.Entry))
	}
}

func (d *driver) append(entry harness.ConsoleLogEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
}

// fulfill answers one paused request from the installed interceptor, or
// fails it so a broken lookup aborts the navigation instead of hanging.
func (d *driver) fulfill(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(d.ctx)
	if c == nil {
		return
	}
	execCtx := cdp.WithExecutor(d.ctx, c.Target)

	resp, err := d.intercept(ev)
	if err != nil {
		d.logger.Warn("interception failed",
			zap.String("url", ev.Request.URL), zap.Error(err))
		if ferr := fetch.FailRequest(ev.RequestID, network.ErrorReasonFailed).Do(execCtx); ferr != nil {
			d.logger.Debug("failing request failed", zap.Error(ferr))
		}
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make([]*fetch.HeaderEntry, 0, len(resp.Headers))
	for name, value := range resp.Headers {
		headers = append(headers, &fetch.HeaderEntry{Name: name, Value: value})
	}
	fulfill := fetch.FulfillRequest(ev.RequestID, int64(status)).
		WithResponseHeaders(headers).
		WithBody(base64.StdEncoding.EncodeToString(resp.Body))
	if err := fulfill.Do(execCtx); err != nil {
		d.logger.Debug("fulfilling request failed",
			zap.String("url", ev.Request.URL), zap.Error(err))
	}
}

func (d *driver) intercept(ev *fetch.EventRequestPaused) (*harness.InterceptedResponse, error) {
	d.mu.Lock()
	fn := d.interceptor
	d.mu.Unlock()
	if fn == nil {
		return &harness.InterceptedResponse{Status: http.StatusOK}, nil
	}

	u, err := url.Parse(ev.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("parse intercepted url %q: %w", ev.Request.URL, err)
	}
	return fn(&harness.InterceptedRequest{
		URL:    u,
		Method: ev.Request.Method,
		Body:   postData(ev.Request),
	})
}

func postData(req *network.Request) []byte {
	if req == nil || !req.HasPostData {
		return nil
	}
	var body []byte
	for _, entry := range req.PostDataEntries {
		if decoded, err := base64.StdEncoding.DecodeString(entry.Bytes); err == nil {
			body = append(body, decoded...)
		} else {
			body = append(body, entry.Bytes...)
		}
	}
	return body
}

func (d *driver) SetInterceptor(fn harness.InterceptFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interceptor = fn
}

func (d *driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *driver) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := d.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
	return state, err
}

func (d *driver) ConsoleLogs(_ context.Context) ([]harness.ConsoleLogEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.entries
	d.entries = nil
	return entries, nil
}

func (d *driver) Close(_ context.Context) error {
	d.close()
	return nil
}

// run executes actions against the session's browser context while
// honoring the caller's context for cancellation.
func (d *driver) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(d.ctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exceptionEntry renders an uncaught exception the way console readers
// expect it: source url, 1-based line:column, description.
func exceptionEntry(e *cdpruntime.EventExceptionThrown) harness.ConsoleLogEntry {
	details := e.ExceptionDetails
	desc := details.Text
	if details.Exception != nil && details.Exception.Description != "" {
		desc = details.Exception.Description
	}
	locator := fmt.Sprintf("%d:%d", details.LineNumber+1, details.ColumnNumber+1)
	message := strings.TrimSpace(fmt.Sprintf("%s %s %s", details.URL, locator, desc))
	return harness.ConsoleLogEntry{
		Level:     harness.LevelSevere,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func consoleEntry(e *cdpruntime.EventConsoleAPICalled) harness.ConsoleLogEntry {
	var parts []string
	for _, arg := range e.Args {
		switch {
		case arg.Value != nil:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		}
	}
	message := strings.Join(parts, " ")
	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		frame := e.StackTrace.CallFrames[0]
		message = strings.TrimSpace(fmt.Sprintf("%s %d:%d %s",
			frame.URL, frame.LineNumber+1, frame.ColumnNumber+1, message))
	}
	return harness.ConsoleLogEntry{
		Level:     consoleLevel(e.Type),
		Message:   message,
		Timestamp: time.Now(),
	}
}

func consoleLevel(t cdpruntime.APIType) harness.LogLevel {
	switch t {
	case cdpruntime.APITypeError:
		return harness.LevelError
	case cdpruntime.APITypeWarning:
		return harness.LevelWarning
	default:
		return harness.LevelInfo
	}
}

// browserEntry maps browser-originated log entries (network failures,
// security errors) onto the console model.
func browserEntry(entry *cdplog.Entry) harness.ConsoleLogEntry {
	level := harness.LevelInfo
	switch entry.Level {
	case cdplog.LevelError:
		level = harness.LevelSevere
	case cdplog.LevelWarning:
		level = harness.LevelWarning
	}
	message := strings.TrimSpace(fmt.Sprintf("%s %s", entry.URL, entry.Text))
	return harness.ConsoleLogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}
