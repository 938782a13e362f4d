// Package mocks provides scripted harness.Driver implementations for
// testing sessions without a real browser.
package mocks

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cironolaenvision/test-html/internal/harness"
)

// MockDriver implements harness.Driver with scripted behavior.
type MockDriver struct {
	mu          sync.Mutex
	interceptor harness.InterceptFunc

	readyStates []string
	pending     []harness.ConsoleLogEntry
	navigated   []string
	responses   []*harness.InterceptedResponse
	closed      bool

	// StickyReadyState, when set, is returned by every ReadyState call.
	StickyReadyState string
	// SevereOnNavigate, when set, queues a SEVERE console entry of the
	// form "<url> <SevereOnNavigate>" after each navigation, simulating
	// a snippet that blows up as soon as the page runs.
	SevereOnNavigate string
	// InterceptOnNavigate routes the navigation URL through the
	// installed interceptor, the way a real browser would request the
	// page document.
	InterceptOnNavigate bool

	NavigateErr error
	ReadyErr    error
	LogsErr     error
}

var _ harness.Driver = (*MockDriver)(nil)

// NewMockDriver returns a driver that loads instantly and reports no
// console activity.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (d *MockDriver) Navigate(_ context.Context, rawURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.navigated = append(d.navigated, rawURL)

	if d.InterceptOnNavigate && d.interceptor != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		resp, err := d.interceptor(&harness.InterceptedRequest{URL: u, Method: "GET"})
		if err != nil {
			return fmt.Errorf("intercepted navigation failed: %w", err)
		}
		d.responses = append(d.responses, resp)
	}

	if d.SevereOnNavigate != "" {
		d.pending = append(d.pending, harness.ConsoleLogEntry{
			Level:     harness.LevelSevere,
			Message:   rawURL + " " + d.SevereOnNavigate,
			Timestamp: time.Now(),
		})
	}
	return nil
}

func (d *MockDriver) ReadyState(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ReadyErr != nil {
		return "", d.ReadyErr
	}
	if d.StickyReadyState != "" {
		return d.StickyReadyState, nil
	}
	if len(d.readyStates) > 0 {
		state := d.readyStates[0]
		d.readyStates = d.readyStates[1:]
		return state, nil
	}
	return "complete", nil
}

func (d *MockDriver) ConsoleLogs(_ context.Context) ([]harness.ConsoleLogEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.LogsErr != nil {
		return nil, d.LogsErr
	}
	entries := d.pending
	d.pending = nil
	return entries, nil
}

func (d *MockDriver) SetInterceptor(fn harness.InterceptFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interceptor = fn
}

func (d *MockDriver) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// QueueReadyState appends states returned by successive ReadyState calls
// before the default "complete".
func (d *MockDriver) QueueReadyState(states ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readyStates = append(d.readyStates, states...)
}

// QueueLogs appends entries drained by the next ConsoleLogs call.
func (d *MockDriver) QueueLogs(entries ...harness.ConsoleLogEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, entries...)
}

// WasClosed reports whether Close was called.
func (d *MockDriver) WasClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// NavigatedURLs returns every URL passed to Navigate.
func (d *MockDriver) NavigatedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigated...)
}

// InterceptedResponses returns the responses captured by
// InterceptOnNavigate navigations.
func (d *MockDriver) InterceptedResponses() []*harness.InterceptedResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*harness.InterceptedResponse(nil), d.responses...)
}

// MockDriverFactory hands out prepared drivers in order, or fresh
// defaults once the queue is exhausted.
type MockDriverFactory struct {
	mu      sync.Mutex
	queue   []*MockDriver
	created []*MockDriver

	// Err, when set, simulates a browser acquisition failure.
	Err error
}

var _ harness.DriverFactory = (*MockDriverFactory)(nil)

// NewMockDriverFactory returns an empty factory.
func NewMockDriverFactory() *MockDriverFactory {
	return &MockDriverFactory{}
}

// Add queues a prepared driver for the next NewDriver call.
func (f *MockDriverFactory) Add(d *MockDriver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, d)
}

func (f *MockDriverFactory) NewDriver(_ context.Context) (harness.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	var d *MockDriver
	if len(f.queue) > 0 {
		d = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		d = NewMockDriver()
	}
	f.created = append(f.created, d)
	return d, nil
}

// Created returns every driver handed out so far.
func (f *MockDriverFactory) Created() []*MockDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockDriver(nil), f.created...)
}
