package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cironolaenvision/test-html/internal/harness"
)

// Runner is the verification capability the API exposes. Satisfied by
// harness.Tester; stubbed in tests. maxWait <= 0 means the configured
// default budget.
type Runner interface {
	TestWithWait(ctx context.Context, html string, maxWait time.Duration) (*harness.Result, error)
}

type APIHandler struct {
	runner Runner
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewAPIHandler bounds concurrent verifications with a weighted
// semaphore sized to the browser session limit.
func NewAPIHandler(runner Runner, maxConcurrent int, logger *zap.Logger) *APIHandler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger,
	}
}

type RunTestRequest struct {
	HTML string `json:"html"`
	// MaxWaitSeconds overrides the configured console wait budget for
	// this run. Zero or absent keeps the configured default.
	MaxWaitSeconds int `json:"max_wait_seconds"`
}

func (h *APIHandler) HandleRunTest(w http.ResponseWriter, r *http.Request) {
	var req RunTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	defer r.Body.Close()

	if req.HTML == "" {
		h.respondError(w, http.StatusBadRequest, "html must not be empty")
		return
	}
	if req.MaxWaitSeconds < 0 {
		h.respondError(w, http.StatusBadRequest, "max_wait_seconds must not be negative")
		return
	}

	if err := h.sem.Acquire(r.Context(), 1); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "no verification slot available: %v", err)
		return
	}
	defer h.sem.Release(1)

	maxWait := time.Duration(req.MaxWaitSeconds) * time.Second
	result, err := h.runner.TestWithWait(r.Context(), req.HTML, maxWait)
	if err != nil {
		h.logger.Error("verification failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "verification failed: %v", err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshalling response failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("writing response failed", zap.Error(err))
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	message := map[string]string{"error": fmt.Sprintf(format, args...)}
	response, err := json.Marshal(message)
	if err != nil {
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("writing error response failed", zap.Error(err))
	}
}
