package harness

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cironolaenvision/test-html/internal/sqlmock"
)

// ErrSnippetNotFound aborts an intercepted page request whose snippet id
// is absent or unknown. Surfaced instead of serving a default page so a
// broken registration fails loudly.
var ErrSnippetNotFound = errors.New("snippet not found")

const (
	// SnippetIDParam is the query parameter carrying the session's
	// snippet id.
	SnippetIDParam = "snippet_id"
	// DataFetchMarker is the reserved URL marker the dashboard script
	// POSTs its SQL to.
	DataFetchMarker = "fetchData"
)

// RouteKind enumerates the ways an intercepted request can be answered.
type RouteKind int

const (
	// RoutePage serves the composed document for a registered snippet.
	RoutePage RouteKind = iota
	// RouteScript serves a supporting script body.
	RouteScript
	// RouteData serves a synthetic CSV result for a data-fetch request.
	RouteData
	// RouteEmpty answers anything else with an empty 200 so no request
	// ever reaches the network or hangs (favicons and the like).
	RouteEmpty
)

// Route is the classified dispatch decision for one request URL.
type Route struct {
	Kind       RouteKind
	SnippetID  string
	ScriptName string
}

// Router answers every outbound request a session's page makes, entirely
// from memory. It is constructed fresh per session and owns that
// session's snippet registry, so concurrent sessions never share state.
type Router struct {
	scripts         []SupportingScript
	snippets        map[string]Snippet
	dataRows        int
	diagnosticsPath string
	logger          *zap.Logger
}

// NewRouter builds a router over the fixed supporting scripts.
// diagnosticsPath, when non-empty, receives the most recently composed
// document as a best-effort side channel for manual inspection.
func NewRouter(scripts []SupportingScript, dataRows int, diagnosticsPath string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		scripts:         scripts,
		snippets:        make(map[string]Snippet),
		dataRows:        dataRows,
		diagnosticsPath: diagnosticsPath,
		logger:          logger,
	}
}

// Register stores a snippet under its id. Ids are never reused, so a
// stale entry is a leak risk, not a correctness hazard.
func (r *Router) Register(s Snippet) {
	r.snippets[s.ID] = s
}

// Classify maps a request URL to its route. Priority order: snippet page,
// supporting script, data fetch, empty catch-all.
func (r *Router) Classify(u *url.URL) Route {
	if strings.Contains(u.String(), SnippetIDParam) {
		return Route{Kind: RoutePage, SnippetID: u.Query().Get(SnippetIDParam)}
	}
	for _, s := range r.scripts {
		if strings.Contains(u.String(), s.URL) {
			return Route{Kind: RouteScript, ScriptName: s.Name}
		}
	}
	if strings.Contains(u.String(), DataFetchMarker) {
		return Route{Kind: RouteData}
	}
	return Route{Kind: RouteEmpty}
}

// Handle answers one intercepted request.
func (r *Router) Handle(req *InterceptedRequest) (*InterceptedResponse, error) {
	route := r.Classify(req.URL)
	switch route.Kind {
	case RoutePage:
		return r.servePage(route.SnippetID, req.URL)
	case RouteScript:
		return r.serveScript(route.ScriptName)
	case RouteData:
		return r.serveData(req.Body)
	default:
		return &InterceptedResponse{Status: http.StatusOK}, nil
	}
}

func (r *Router) servePage(id string, u *url.URL) (*InterceptedResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: no %s in request url %q", ErrSnippetNotFound, SnippetIDParam, u)
	}
	snippet, ok := r.snippets[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrSnippetNotFound, id)
	}
	doc := ComposeDocument(snippet.HTML, r.scripts)
	r.writeDiagnostics(doc)
	return &InterceptedResponse{
		Status:  http.StatusOK,
		Headers: map[string]string{"Content-Type": "text/html"},
		Body:    []byte(doc),
	}, nil
}

func (r *Router) serveScript(name string) (*InterceptedResponse, error) {
	for _, s := range r.scripts {
		if s.Name == name {
			return &InterceptedResponse{
				Status:  http.StatusOK,
				Headers: map[string]string{"Content-Type": "text/javascript"},
				Body:    []byte(s.Content),
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown supporting script %q", name)
}

func (r *Router) serveData(body []byte) (*InterceptedResponse, error) {
	csv := sqlmock.CSVResponse(string(body), r.dataRows)
	return &InterceptedResponse{
		Status:  http.StatusOK,
		Headers: map[string]string{"Content-Type": "text/csv"},
		Body:    []byte(csv),
	}, nil
}

// writeDiagnostics persists the last composed document. Best effort only,
// never part of the serving contract.
func (r *Router) writeDiagnostics(doc string) {
	if r.diagnosticsPath == "" {
		return
	}
	if err := os.WriteFile(r.diagnosticsPath, []byte(doc), 0o644); err != nil {
		r.logger.Warn("failed to write composed document diagnostics",
			zap.String("path", r.diagnosticsPath), zap.Error(err))
	}
}
