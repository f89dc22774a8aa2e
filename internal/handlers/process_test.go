package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-courier/internal/ratelimit"
	"code-courier/internal/workers"
)

type fakeRunner struct {
	summary *workers.RunSummary
	err     error
	calls   []string
}

func (f *fakeRunner) RunExtraction(ownerID string, onlyNew bool) (*workers.RunSummary, error) {
	f.calls = append(f.calls, ownerID)
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type noLimitConfig struct{}

func (noLimitConfig) GetDisableRateLimit() bool { return true }

type limitConfig struct{}

func (limitConfig) GetDisableRateLimit() bool { return false }

func postProcess(handler *ProcessHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/gmail/process", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Process(rec, req)
	return rec
}

func TestProcessRunsExtraction(t *testing.T) {
	runner := &fakeRunner{summary: &workers.RunSummary{Examined: 5, Saved: 2}}
	handler := NewProcessHandler(runner, ratelimit.NewTriggerLimiter(noLimitConfig{}))

	rec := postProcess(handler, `{"owner_id":"owner-1","only_new":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var summary workers.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.Examined)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, []string{"owner-1"}, runner.calls)
}

func TestProcessBusyConflict(t *testing.T) {
	runner := &fakeRunner{summary: &workers.RunSummary{Busy: true}}
	handler := NewProcessHandler(runner, ratelimit.NewTriggerLimiter(noLimitConfig{}))

	rec := postProcess(handler, `{"owner_id":"owner-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProcessCooldown(t *testing.T) {
	runner := &fakeRunner{summary: &workers.RunSummary{}}
	handler := NewProcessHandler(runner, ratelimit.NewTriggerLimiter(limitConfig{}))

	rec := postProcess(handler, `{"owner_id":"owner-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postProcess(handler, `{"owner_id":"owner-1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// force bypasses the cooldown
	rec = postProcess(handler, `{"owner_id":"owner-1","force":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// other owners are unaffected
	rec = postProcess(handler, `{"owner_id":"owner-2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessValidation(t *testing.T) {
	runner := &fakeRunner{summary: &workers.RunSummary{}}
	handler := NewProcessHandler(runner, ratelimit.NewTriggerLimiter(noLimitConfig{}))

	rec := postProcess(handler, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postProcess(handler, `{"only_new":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, runner.calls)
}

func TestProcessRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("gmail unreachable")}
	handler := NewProcessHandler(runner, ratelimit.NewTriggerLimiter(noLimitConfig{}))

	rec := postProcess(handler, `{"owner_id":"owner-1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	_, db := setupCodesRouter(t)

	handler := NewHealthHandler(db)
	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Database)
}
