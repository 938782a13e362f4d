package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLoadTimeout reports that the composed page never reached a complete
// ready state within the load timeout. Fatal to the session, no retry.
var ErrLoadTimeout = errors.New("page load timed out")

// State names a session's position in its lifecycle. Terminal StateDone
// is reached on every path, including failures.
type State string

const (
	StateIdle       State = "idle"
	StateRegistered State = "registered"
	StateNavigating State = "navigating"
	StateLoaded     State = "loaded"
	StatePolling    State = "polling"
	StateDone       State = "done"
)

const (
	// pollSamples splits the wait budget into a fixed number of console
	// reads, so the cadence scales with the configured budget.
	pollSamples = 20

	readyStateComplete = "complete"
	readyPollInterval  = 100 * time.Millisecond
)

// Options parameterize a Tester. Zero values fall back to the defaults
// the harness was calibrated with.
type Options struct {
	// BaseURL is the synthetic origin sessions navigate to. No real
	// server listens there; interception answers everything.
	BaseURL string
	// MaxWaitTime is the total budget for polling the console after the
	// page has loaded.
	MaxWaitTime time.Duration
	// LoadTimeout bounds the wait for document readiness.
	LoadTimeout time.Duration
	// DataRows is the synthetic CSV row count.
	DataRows int
	// DiagnosticsPath receives the last composed document, best effort.
	DiagnosticsPath string
	// LocalSourceMarker overrides the attributor's local-source marker.
	LocalSourceMarker string
}

func (o *Options) applyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:8080"
	}
	if o.MaxWaitTime <= 0 {
		o.MaxWaitTime = 2 * time.Second
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 10 * time.Second
	}
	if o.DataRows <= 0 {
		o.DataRows = 3
	}
}

// Tester runs snippet verifications. Each Test call constructs a fresh
// session owning its own router registry entry and its own browser
// driver, so nothing aliases across calls.
type Tester struct {
	opts    Options
	scripts []SupportingScript
	drivers DriverFactory
	logger  *zap.Logger
}

// NewTester builds a Tester over the fixed supporting scripts and a
// driver factory.
func NewTester(opts Options, scripts []SupportingScript, drivers DriverFactory, logger *zap.Logger) *Tester {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tester{
		opts:    opts,
		scripts: scripts,
		drivers: drivers,
		logger:  logger,
	}
}

// Test verifies one snippet end to end and returns its verdict. The
// caller receives either a completed result or a propagated fatal error,
// never a partial outcome; the browser driver is released on every path.
func (t *Tester) Test(ctx context.Context, html string) (*Result, error) {
	return t.TestWithWait(ctx, html, 0)
}

// TestWithWait runs one verification with a per-call wait budget.
// maxWait <= 0 falls back to the configured budget.
func (t *Tester) TestWithWait(ctx context.Context, html string, maxWait time.Duration) (*Result, error) {
	if maxWait <= 0 {
		maxWait = t.opts.MaxWaitTime
	}
	s := &session{
		tester:  t,
		state:   StateIdle,
		maxWait: maxWait,
		router:  NewRouter(t.scripts, t.opts.DataRows, t.opts.DiagnosticsPath, t.logger),
	}
	return s.run(ctx, html)
}

// session is the per-invocation state machine:
// Idle -> Registered -> Navigating -> Loaded -> Polling -> Done.
type session struct {
	tester  *Tester
	state   State
	router  *Router
	maxWait time.Duration
	pageURL string
}

func (s *session) transition(next State) {
	s.tester.logger.Debug("session state",
		zap.String("from", string(s.state)), zap.String("to", string(next)))
	s.state = next
}

func (s *session) run(ctx context.Context, html string) (*Result, error) {
	opts := s.tester.opts

	id := uuid.New().String()
	s.router.Register(Snippet{ID: id, HTML: html})
	s.pageURL = opts.BaseURL + "/?" + SnippetIDParam + "=" + id
	s.transition(StateRegistered)

	s.transition(StateNavigating)
	drv, err := s.tester.drivers.NewDriver(ctx)
	if err != nil {
		s.transition(StateDone)
		return nil, fmt.Errorf("acquire browser: %w", err)
	}
	defer func() {
		if cerr := drv.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.tester.logger.Warn("browser release failed", zap.Error(cerr))
		}
		s.transition(StateDone)
	}()

	drv.SetInterceptor(s.router.Handle)
	if err := drv.Navigate(ctx, s.pageURL); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", s.pageURL, err)
	}

	if err := s.waitForLoad(ctx, drv); err != nil {
		return nil, err
	}
	s.transition(StateLoaded)

	s.transition(StatePolling)
	return s.poll(ctx, drv)
}

// waitForLoad blocks until document.readyState reports complete, bounded
// by the configured load timeout.
func (s *session) waitForLoad(ctx context.Context, drv Driver) error {
	deadline := time.NewTimer(s.tester.opts.LoadTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(readyPollInterval)
	defer tick.Stop()

	for {
		state, err := drv.ReadyState(ctx)
		if err != nil {
			return fmt.Errorf("read document ready state: %w", err)
		}
		if state == readyStateComplete {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %s", ErrLoadTimeout, s.tester.opts.LoadTimeout)
		case <-tick.C:
		}
	}
}

// poll reads newly available console entries on a fixed cadence until an
// error has been found or the wait budget elapses. Short-circuiting on
// the first error trades exhaustive collection for fast feedback.
func (s *session) poll(ctx context.Context, drv Driver) (*Result, error) {
	attributor := &Attributor{
		PageURL:           s.pageURL,
		BaseURL:           s.tester.opts.BaseURL,
		LocalSourceMarker: s.tester.opts.LocalSourceMarker,
	}
	result := &Result{Success: true, Errors: []string{}}
	interval := s.maxWait / pollSamples

	for attempts := 0; len(result.Errors) == 0 && attempts < pollSamples; attempts++ {
		entries, err := drv.ConsoleLogs(ctx)
		if err != nil {
			return nil, fmt.Errorf("read console log: %w", err)
		}
		for _, entry := range entries {
			if !entry.Level.IsError() {
				continue
			}
			result.Success = false
			result.Errors = append(result.Errors, attributor.Normalize(entry))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return result, nil
}
