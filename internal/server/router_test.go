package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-courier/internal/database"
	"code-courier/internal/notify"
	"code-courier/internal/ratelimit"
	"code-courier/internal/workers"
)

type fakeRunner struct {
	summary workers.RunSummary
}

func (f *fakeRunner) RunExtraction(ownerID string, onlyNew bool) (*workers.RunSummary, error) {
	s := f.summary
	return &s, nil
}

type openConfig struct{}

func (openConfig) GetDisableRateLimit() bool { return true }

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := notify.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(hub.Close)

	return NewRouter(Options{
		DB:      db,
		Runner:  &fakeRunner{summary: workers.RunSummary{Examined: 2, Saved: 1}},
		Limiter: ratelimit.NewTriggerLimiter(openConfig{}),
		Hub:     hub,
	})
}

func TestRouterRoutes(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", "GET", "/api/health", "", http.StatusOK},
		{"list codes", "GET", "/api/codes?owner_id=u1", "", http.StatusOK},
		{"missing code", "GET", "/api/codes/999", "", http.StatusNotFound},
		{"trigger run", "POST", "/api/gmail/process", `{"owner_id":"u1"}`, http.StatusOK},
		{"trigger without owner", "POST", "/api/gmail/process", `{}`, http.StatusBadRequest},
		{"unknown route", "GET", "/api/nope", "", http.StatusNotFound},
		{"wrong method", "DELETE", "/api/codes", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouterProcessReturnsSummary(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest("POST", "/api/gmail/process", strings.NewReader(`{"owner_id":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary workers.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Examined)
	assert.Equal(t, 1, summary.Saved)
}

func TestRouterWebSocketEndpointRejectsPlainGET(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest("GET", "/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
