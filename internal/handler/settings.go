package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/service"
)

// SettingsHandler serves the settings screen: usage statistics and the
// user's own assistant API key. All routes require a signed-in user.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// Routes mounts the handler at /api.
func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/settings", h.HandleDashboard)
	r.Get("/usage/stats", h.HandleStats)
	r.Get("/usage/activity", h.HandleActivity)
	r.Get("/usage/range", h.HandleRange)
	r.Get("/usage/summary", h.HandleUsageSummary)
	r.Get("/api-key", h.HandleKeyStatus)
	r.Put("/api-key", h.HandleSaveKey)
	r.Delete("/api-key", h.HandleDeleteKey)
}

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// intParam reads a positive integer query parameter, or fallback when absent.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return n, nil
}

// HandleDashboard returns stats, chart, trend, insights, recent activity
// and key status in one payload.
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.settings.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleStats: GET /api/usage/stats?days=30
func (h *SettingsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", account.DefaultStatsDays)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.settings.Stats(r.Context(), userID(r), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleActivity: GET /api/usage/activity?limit=50
func (h *SettingsHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", account.DefaultActivityLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.settings.Activity(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleRange: GET /api/usage/range?startDate=2026-01-01&endDate=2026-01-31
func (h *SettingsHandler) HandleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.settings.Range(r.Context(), userID(r), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleUsageSummary: GET /api/usage/summary
func (h *SettingsHandler) HandleUsageSummary(w http.ResponseWriter, r *http.Request) {
	raw, err := h.settings.UsageSummary(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HandleKeyStatus: GET /api/api-key
func (h *SettingsHandler) HandleKeyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.settings.KeyStatus(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type saveKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// HandleSaveKey stores the user's key. The response carries only the
// masked form.
//
// HTTP: PUT /api/api-key {"apiKey": "..."}
func (h *SettingsHandler) HandleSaveKey(w http.ResponseWriter, r *http.Request) {
	var req saveKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := h.settings.SaveKey(r.Context(), userID(r), req.APIKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleDeleteKey: DELETE /api/api-key
func (h *SettingsHandler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	status, err := h.settings.DeleteKey(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
