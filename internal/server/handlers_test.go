package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cironolaenvision/test-html/internal/harness"
)

type stubRunner struct {
	result  *harness.Result
	err     error
	gotHTML string
	gotWait time.Duration
}

func (s *stubRunner) TestWithWait(_ context.Context, html string, maxWait time.Duration) (*harness.Result, error) {
	s.gotHTML = html
	s.gotWait = maxWait
	return s.result, s.err
}

func postTest(t *testing.T, h *APIHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleRunTest(rec, req)
	return rec
}

func TestHandleRunTest_Success(t *testing.T) {
	runner := &stubRunner{result: &harness.Result{Success: true, Errors: []string{}}}
	h := NewAPIHandler(runner, 2, nil)

	rec := postTest(t, h, `{"html":"<p>ok</p>"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"errors":[]}`, rec.Body.String())
	assert.Equal(t, "<p>ok</p>", runner.gotHTML)
}

func TestHandleRunTest_FailedVerification(t *testing.T) {
	runner := &stubRunner{result: &harness.Result{
		Success: false,
		Errors:  []string{"generated_scrit: line: 387 to 388 column: 17 Uncaught SyntaxError"},
	}}
	h := NewAPIHandler(runner, 2, nil)

	rec := postTest(t, h, `{"html":"<script>broken(</script>"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), "line: 387 to 388")
}

func TestHandleRunTest_MaxWaitSecondsForwarded(t *testing.T) {
	runner := &stubRunner{result: &harness.Result{Success: true, Errors: []string{}}}
	h := NewAPIHandler(runner, 2, nil)

	rec := postTest(t, h, `{"html":"<p>x</p>","max_wait_seconds":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7*time.Second, runner.gotWait)
}

func TestHandleRunTest_OmittedWaitKeepsConfiguredBudget(t *testing.T) {
	runner := &stubRunner{result: &harness.Result{Success: true, Errors: []string{}}}
	h := NewAPIHandler(runner, 2, nil)

	rec := postTest(t, h, `{"html":"<p>x</p>"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Duration(0), runner.gotWait)
}

func TestHandleRunTest_NegativeWaitRejected(t *testing.T) {
	h := NewAPIHandler(&stubRunner{}, 2, nil)

	rec := postTest(t, h, `{"html":"<p>x</p>","max_wait_seconds":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunTest_InvalidBody(t *testing.T) {
	h := NewAPIHandler(&stubRunner{}, 2, nil)

	rec := postTest(t, h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunTest_EmptyHTML(t *testing.T) {
	h := NewAPIHandler(&stubRunner{}, 2, nil)

	rec := postTest(t, h, `{"html":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunTest_RunnerErrorIsServerError(t *testing.T) {
	runner := &stubRunner{err: errors.New("page load timed out after 10s")}
	h := NewAPIHandler(runner, 2, nil)

	rec := postTest(t, h, `{"html":"<p>slow</p>"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "page load timed out")
}
