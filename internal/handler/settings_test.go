package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/handler"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
)

// fakeUsageBackend serves the account endpoints for user u1.
type fakeUsageBackend struct {
	mu       sync.Mutex
	days     string
	savedKey string
	failAll  bool
}

func (b *fakeUsageBackend) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	fail := func(w http.ResponseWriter) bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failAll {
			http.Error(w, `{"message":"usage db down"}`, http.StatusInternalServerError)
			return true
		}
		return false
	}

	mux.HandleFunc("GET /api/gemini-usage/stats/u1", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		b.mu.Lock()
		b.days = r.URL.Query().Get("days")
		b.mu.Unlock()
		write(w, map[string]any{"success": true, "data": map[string]any{
			"summary": map[string]any{"totalRequests": "12", "successRate": 91.67},
			"dailyUsage": []map[string]any{
				{"date": "2026-01-02", "total_requests": 8},
				{"date": "2026-01-01", "total_requests": 4},
			},
			"endpointUsage": []map[string]any{{"endpoint": "explain", "total_requests": 12}},
		}})
	})
	mux.HandleFunc("GET /api/gemini-usage/activity/u1", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		write(w, map[string]any{"success": true, "data": []map[string]any{
			{"id": "a1", "endpoint": "explain", "success": true},
		}})
	})
	mux.HandleFunc("GET /api/gemini-usage/dashboard/u1", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		write(w, map[string]any{"success": true, "data": map[string]any{"today": 3}})
	})
	mux.HandleFunc("GET /api/user-api-key/status/u1", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.savedKey == "" {
			write(w, model.APIKeyStatus{UsingSharedKey: true})
			return
		}
		write(w, model.APIKeyStatus{HasAPIKey: true, MaskedKey: account.MaskKey(b.savedKey)})
	})
	mux.HandleFunc("POST /api/user-api-key/save", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			APIKey string `json:"apiKey"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.savedKey = body.APIKey
		b.mu.Unlock()
		write(w, map[string]any{"success": true})
	})
	mux.HandleFunc("DELETE /api/user-api-key/delete/u1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.savedKey = ""
		b.mu.Unlock()
		write(w, map[string]any{"success": true})
	})
	return mux
}

func newSettingsRouter(t *testing.T, backend *fakeUsageBackend) http.Handler {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	settings := service.NewSettingsService(account.New(newAPIClient(srv.URL)), discardLogger())
	h := handler.NewSettingsHandler(settings, discardLogger())

	r := chi.NewRouter()
	r.Use(withTestUser)
	r.Use(auth.RequireAuth(nil))
	r.Route("/api", h.Routes)
	return r
}

func settingsRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(testUserHeader, "u1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSettingsHandler_Stats(t *testing.T) {
	backend := &fakeUsageBackend{}
	r := newSettingsRouter(t, backend)

	rr := settingsRequest(t, r, http.MethodGet, "/api/usage/stats?days=7", "")

	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[account.Stats](t, rr)
	require.NotNil(t, stats.Summary)
	assert.EqualValues(t, 12, stats.Summary.TotalRequests)
	assert.Equal(t, "7", backend.days)
}

func TestSettingsHandler_StatsDefaultsDays(t *testing.T) {
	backend := &fakeUsageBackend{}
	r := newSettingsRouter(t, backend)

	rr := settingsRequest(t, r, http.MethodGet, "/api/usage/stats", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "30", backend.days)
}

func TestSettingsHandler_InvalidQuery(t *testing.T) {
	r := newSettingsRouter(t, &fakeUsageBackend{})

	for _, path := range []string{"/api/usage/stats?days=abc", "/api/usage/stats?days=0", "/api/usage/activity?limit=-3"} {
		rr := settingsRequest(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestSettingsHandler_Dashboard(t *testing.T) {
	r := newSettingsRouter(t, &fakeUsageBackend{})

	rr := settingsRequest(t, r, http.MethodGet, "/api/settings", "")

	require.Equal(t, http.StatusOK, rr.Code)
	d := decode[service.Dashboard](t, rr)
	require.Len(t, d.Chart, 2)
	assert.Equal(t, "Jan 1", d.Chart[0].Date, "chart runs oldest to newest")
	require.Len(t, d.Activity, 1)
	require.NotNil(t, d.APIKey)
	assert.True(t, d.APIKey.UsingSharedKey)
}

func TestSettingsHandler_UsageSummary(t *testing.T) {
	r := newSettingsRouter(t, &fakeUsageBackend{})

	rr := settingsRequest(t, r, http.MethodGet, "/api/usage/summary", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"today":3}`, rr.Body.String())
}

func TestSettingsHandler_APIKeyLifecycle(t *testing.T) {
	r := newSettingsRouter(t, &fakeUsageBackend{})

	rr := settingsRequest(t, r, http.MethodPut, "/api/api-key", `{"apiKey":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = settingsRequest(t, r, http.MethodPut, "/api/api-key", `{"apiKey":"AIzaSyExample1234567890"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "AIzaSyExample1234567890")
	status := decode[model.APIKeyStatus](t, rr)
	assert.True(t, status.HasAPIKey)

	rr = settingsRequest(t, r, http.MethodDelete, "/api/api-key", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[model.APIKeyStatus](t, rr).HasAPIKey)
}

func TestSettingsHandler_BackendFailureIsBadGateway(t *testing.T) {
	r := newSettingsRouter(t, &fakeUsageBackend{failAll: true})

	rr := settingsRequest(t, r, http.MethodGet, "/api/api-key", "")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.NotContains(t, rr.Body.String(), "usage db down")
}
