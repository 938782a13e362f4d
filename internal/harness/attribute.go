package harness

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultLocalSourceMarker replaces the navigation URL in normalized
// error messages. The literal carries over from the harness this one was
// calibrated against; it is configurable rather than corrected.
const DefaultLocalSourceMarker = "generated_scrit: "

// lineColPattern matches the first line:column locator embedded in a
// console message, including any leading whitespace.
var lineColPattern = regexp.MustCompile(`\s*(\d+):(\d+)`)

// Attributor decides whether a console error originated from the
// generated page itself (as opposed to an externally sourced script) and
// rewrites its message into a human-meaningful form.
type Attributor struct {
	// PageURL is the session's full navigation URL. A message containing
	// it reported the composed document as its source file.
	PageURL string
	// BaseURL is the bare origin, stripped from every message.
	BaseURL string
	// LocalSourceMarker substitutes for PageURL in the output. Empty
	// means DefaultLocalSourceMarker.
	LocalSourceMarker string
}

// Normalize transforms one console entry into the message recorded in a
// verification result. Local errors additionally get their first
// line:column locator rewritten as a "line N to N+1" span: the composed
// document's inline wrapper makes a single reported line ambiguous
// against the original snippet, so a range is honest where a single
// number would be falsely precise.
func (a *Attributor) Normalize(entry ConsoleLogEntry) string {
	marker := a.LocalSourceMarker
	if marker == "" {
		marker = DefaultLocalSourceMarker
	}

	message := entry.Message
	isLocal := strings.Contains(message, a.PageURL)
	message = strings.ReplaceAll(message, a.PageURL, marker)
	message = strings.TrimSpace(strings.ReplaceAll(message, a.BaseURL, ""))
	if !isLocal {
		return message
	}
	return rewriteFirstLocator(message)
}

func rewriteFirstLocator(message string) string {
	m := lineColPattern.FindStringSubmatchIndex(message)
	if m == nil {
		return message
	}
	line, err := strconv.Atoi(message[m[2]:m[3]])
	if err != nil {
		return message
	}
	column := message[m[4]:m[5]]
	rewritten := fmt.Sprintf("line: %d to %d column: %s", line, line+1, column)
	return message[:m[0]] + rewritten + message[m[1]:]
}
