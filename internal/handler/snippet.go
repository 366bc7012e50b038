package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
	"github.com/sakif/code-studio/internal/studio"
)

// SnippetGetter reads one snippet for its owner.
type SnippetGetter interface {
	Get(ctx context.Context, id, userID string) (*model.Snippet, error)
}

// SnippetHandler is the snippet management screen over HTTP.
//
// DEPENDENCY CHAIN:
//
//	SnippetHandler → studio.SnippetBrowser (screen state) → SnippetService → Repository
//
// Listing and mutations go through the session's browser so the list the
// studio holds is the one the client sees. All routes sit behind
// auth.RequireAuth.
type SnippetHandler struct {
	sessions *Sessions
	snippets SnippetGetter
	logger   *slog.Logger
}

func NewSnippetHandler(sessions *Sessions, snippets SnippetGetter, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{sessions: sessions, snippets: snippets, logger: logger}
}

func (h *SnippetHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGetByID)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

func (h *SnippetHandler) browser(r *http.Request) (*studio.SnippetBrowser, error) {
	c, err := h.sessions.Coordinator(r)
	if err != nil {
		return nil, err
	}
	b := c.Browser()
	if b == nil {
		return nil, apperror.Unauthenticated("sign in to manage snippets")
	}
	return b, nil
}

// HandleList returns the caller's snippets.
//
// HTTP: GET /api/snippets?search=fib&language=python&sort=title&order=asc
//
// Unknown sort fields fall back to updated_at, unknown orders to desc, and
// language=all (or empty) disables the language filter.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	b, err := h.browser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	items, err := b.SetQuery(r.Context(), model.SnippetQuery{
		Search:   q.Get("search"),
		Language: q.Get("language"),
		SortBy:   q.Get("sort"),
		Order:    q.Get("order"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGetByID returns one snippet.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	s, err := h.snippets.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type createSnippetRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

// HandleCreate saves a new snippet from the form.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"title": "fib", "description": "", "code": "...", "language": "python"}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.browser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := b.Save(r.Context(), service.SnippetInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

type updateSnippetRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Code        *string `json:"code"`
	Language    *string `json:"language"`
}

// HandleUpdate changes the fields present in the body.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.browser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := b.Update(r.Context(), chi.URLParam(r, "id"), service.SnippetUpdate(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id} → 204 No Content
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	b, err := h.browser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := b.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("snippet deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
