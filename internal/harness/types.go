// Package harness verifies that an HTML/JS snippet runs without errors
// inside a real browser. It composes a synthetic page around the snippet,
// answers every request the browser makes from memory, and watches the
// browser console for error-level entries over a bounded time window.
package harness

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// LogLevel classifies a browser console entry.
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelSevere  LogLevel = "SEVERE"
)

// IsError reports whether the level marks a failed verification.
func (l LogLevel) IsError() bool {
	return l == LevelError || l == LevelSevere
}

// ConsoleLogEntry is one leveled message read from the browser console.
type ConsoleLogEntry struct {
	Level     LogLevel
	Message   string
	Timestamp time.Time
}

// Snippet is the user-supplied HTML/JS fragment under test, keyed by the
// opaque id minted for its session. Never mutated after creation.
type Snippet struct {
	ID   string
	HTML string
}

// SupportingScript is a fixed script injected alongside every snippet:
// the charting library and the dashboard data-fetch mock. Loaded once at
// construction and shared read-only across sessions.
type SupportingScript struct {
	Name      string // stable identifier, used as the script tag id
	URL       string // path the composed page references it by
	Content   string
	LineCount int
}

// NewSupportingScript builds a script entry, recording its line count so
// error locators can be reasoned about per resource.
func NewSupportingScript(content, url, name string) SupportingScript {
	return SupportingScript{
		Name:      name,
		URL:       url,
		Content:   content,
		LineCount: len(strings.Split(content, "\n")),
	}
}

// Result is the verdict of one verification. Success is false iff at
// least one attributable error-level console entry was observed.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// InterceptedRequest is an outbound browser request handed to the
// interception layer instead of the network.
type InterceptedRequest struct {
	URL    *url.URL
	Method string
	Body   []byte
}

// InterceptedResponse is the locally computed answer for an intercepted
// request.
type InterceptedResponse struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// InterceptFunc answers one intercepted request. Returning an error
// aborts the in-flight request instead of serving a response.
type InterceptFunc func(req *InterceptedRequest) (*InterceptedResponse, error)

// Driver is the browser control capability one session owns exclusively.
// Implementations live outside this package; tests use a scripted mock.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	ReadyState(ctx context.Context) (string, error)
	// ConsoleLogs drains the console entries that arrived since the
	// previous call.
	ConsoleLogs(ctx context.Context) ([]ConsoleLogEntry, error)
	SetInterceptor(fn InterceptFunc)
	Close(ctx context.Context) error
}

// DriverFactory mints a fresh Driver per session. Drivers are never
// shared across sessions.
type DriverFactory interface {
	NewDriver(ctx context.Context) (Driver, error)
}
