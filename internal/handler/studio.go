package handler

import (
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/studio"
)

// StudioHandler exposes the studio coordinator of the caller's session.
//
// Every action answers with the complete state snapshot after the action,
// so a client that ignores the event stream still renders correctly.
// Guard failures (empty buffer, assistant disabled, not signed in) map to
// 4xx through writeError; failed backend calls are reported inside the
// state as chat messages and notifications, with a 200.
type StudioHandler struct {
	sessions *Sessions
	logger   *slog.Logger
}

func NewStudioHandler(sessions *Sessions, logger *slog.Logger) *StudioHandler {
	return &StudioHandler{sessions: sessions, logger: logger}
}

// Routes mounts the studio API; it is mounted at /api/studio.
func (h *StudioHandler) Routes(r chi.Router) {
	r.Get("/state", h.HandleState)
	r.Get("/languages", h.HandleLanguages)

	r.Post("/theme/toggle", h.toggle((*studio.Coordinator).ToggleTheme))
	r.Post("/sidebar/toggle", h.toggle((*studio.Coordinator).ToggleSidebar))
	r.Post("/output-sidebar/toggle", h.toggle((*studio.Coordinator).ToggleOutputSidebar))
	r.Post("/assistant/toggle", h.toggle((*studio.Coordinator).ToggleAssistant))

	r.Put("/code", h.HandleSetCode)
	r.Put("/language", h.HandleSetLanguage)
	r.Post("/language/confirm", h.HandleConfirmLanguage)

	r.Post("/explain", h.HandleExplain)
	r.Post("/autocomplete", h.HandleAutocomplete)
	r.Post("/chat", h.HandleChat)
	r.Post("/modify", h.HandleModify)

	r.Post("/inline", h.HandleInlineRequest)
	r.Post("/inline/accept", h.HandleInlineAccept)
	r.Post("/inline/dismiss", h.HandleInlineDismiss)
	r.Post("/inline/toggle", h.toggle((*studio.Coordinator).ToggleInlineCompletions))

	r.Post("/save", h.HandleQuickSave)
	r.Post("/load/{id}", h.HandleLoad)
	r.Post("/run", h.HandleRun)
	r.Delete("/output", h.HandleClearOutput)
	r.Delete("/notifications/{id}", h.HandleDismissNotification)
}

// withCoordinator resolves the session and runs fn, writing any error.
func (h *StudioHandler) withCoordinator(w http.ResponseWriter, r *http.Request, fn func(c *studio.Coordinator) error) {
	c, err := h.sessions.Coordinator(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fn(c); err != nil {
		writeError(w, err)
	}
}

// respond runs action and, when it succeeds, writes the resulting state.
func (h *StudioHandler) respond(w http.ResponseWriter, r *http.Request, action func(c *studio.Coordinator) error) {
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		if err := action(c); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
		return nil
	})
}

func (h *StudioHandler) toggle(fn func(*studio.Coordinator) studio.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withCoordinator(w, r, func(c *studio.Coordinator) error {
			writeJSON(w, http.StatusOK, fn(c))
			return nil
		})
	}
}

// HandleState returns the current snapshot.
//
// HTTP: GET /api/studio/state
func (h *StudioHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(*studio.Coordinator) error { return nil })
}

// HandleLanguages lists the editor's language selector.
//
// HTTP: GET /api/studio/languages
func (h *StudioHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, editor.Languages())
}

type codeRequest struct {
	Code string `json:"code"`
}

// HandleSetCode replaces the buffer with what the user typed.
//
// HTTP: PUT /api/studio/code {"code": "..."}
func (h *StudioHandler) HandleSetCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		writeJSON(w, http.StatusOK, c.SetCode(req.Code))
		return nil
	})
}

type languageRequest struct {
	Language string `json:"language"`
}

// HandleSetLanguage changes the editor language. A blank buffer gets the
// boilerplate at once; otherwise the state carries a pendingSwitch that
// must be answered with HandleConfirmLanguage.
//
// HTTP: PUT /api/studio/language {"language": "python"}
func (h *StudioHandler) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		s, err := c.SetLanguage(req.Language)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s)
		return nil
	})
}

type confirmRequest struct {
	Replace bool `json:"replace"`
}

// HandleConfirmLanguage answers the replace-boilerplate question.
//
// HTTP: POST /api/studio/language/confirm {"replace": true}
func (h *StudioHandler) HandleConfirmLanguage(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		s, err := c.ResolveLanguageSwitch(req.Replace)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s)
		return nil
	})
}

// HandleExplain asks the assistant to explain the buffer.
//
// HTTP: POST /api/studio/explain
func (h *StudioHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(c *studio.Coordinator) error { return c.ExplainCode(r.Context()) })
}

// HandleAutocomplete asks the assistant for an improved version.
//
// HTTP: POST /api/studio/autocomplete
func (h *StudioHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(c *studio.Coordinator) error { return c.Autocomplete(r.Context()) })
}

type chatRequest struct {
	Message string `json:"message"`
}

// HandleChat submits a chat message. A modification result is typed into
// the buffer in the background; the typing frames arrive on the event
// stream and the final code with a later state event.
//
// HTTP: POST /api/studio/chat {"message": "add a docstring"}
func (h *StudioHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, func(c *studio.Coordinator) error { return c.ChatSubmit(r.Context(), req.Message) })
}

type modifyRequest struct {
	Prompt string `json:"prompt"`
}

// HandleModify runs the editor prompt modification.
//
// HTTP: POST /api/studio/modify {"prompt": "use const"}
func (h *StudioHandler) HandleModify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, func(c *studio.Coordinator) error { return c.ModifyCode(r.Context(), req.Prompt) })
}

type inlineRequest struct {
	Position model.Position `json:"position"`
	// Typed is the character just typed; empty for an explicit request.
	Typed string `json:"typed"`
}

// HandleInlineRequest asks for ghost text at the cursor. The request is
// debounced and superseded by newer ones; a superseded or empty result
// answers 204.
//
// HTTP: POST /api/studio/inline {"position": {"lineNumber": 1, "column": 9}, "typed": "."}
func (h *StudioHandler) HandleInlineRequest(w http.ResponseWriter, r *http.Request) {
	var req inlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var typed rune
	if req.Typed != "" {
		typed, _ = utf8.DecodeRuneInString(req.Typed)
	}
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		sg := c.RequestInlineCompletion(r.Context(), req.Position, typed)
		if sg == nil {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
		writeJSON(w, http.StatusOK, sg)
		return nil
	})
}

// HandleInlineAccept inserts the visible suggestion.
//
// HTTP: POST /api/studio/inline/accept
func (h *StudioHandler) HandleInlineAccept(w http.ResponseWriter, r *http.Request) {
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		s, err := c.AcceptInlineCompletion()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s)
		return nil
	})
}

// HandleInlineDismiss hides the visible suggestion.
//
// HTTP: POST /api/studio/inline/dismiss
func (h *StudioHandler) HandleInlineDismiss(w http.ResponseWriter, r *http.Request) {
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		writeJSON(w, http.StatusOK, c.DismissInlineCompletion())
		return nil
	})
}

type saveRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// HandleQuickSave stores the buffer as a snippet of the signed-in user.
// Anonymous callers get 401 and a sign-in notification; nothing is sent
// to the snippet store.
//
// HTTP: POST /api/studio/save {"title": "", "description": ""}
func (h *StudioHandler) HandleQuickSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		s, err := c.QuickSave(r.Context(), req.Title, req.Description)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, s)
		return nil
	})
}

// HandleLoad loads one of the user's snippets into the editor.
//
// HTTP: POST /api/studio/load/{id}
func (h *StudioHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "snippet ID is required"))
		return
	}
	h.respond(w, r, func(c *studio.Coordinator) error {
		_, err := c.LoadSnippet(r.Context(), id)
		return err
	})
}

// HandleRun executes the buffer and returns the output panel content.
//
// HTTP: POST /api/studio/run
func (h *StudioHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		view, err := c.RunCode(r.Context())
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, view)
		return nil
	})
}

// HandleClearOutput empties the output panel.
//
// HTTP: DELETE /api/studio/output
func (h *StudioHandler) HandleClearOutput(w http.ResponseWriter, r *http.Request) {
	h.withCoordinator(w, r, func(c *studio.Coordinator) error {
		writeJSON(w, http.StatusOK, c.ClearOutput())
		return nil
	})
}

// HandleDismissNotification removes one notification.
//
// HTTP: DELETE /api/studio/notifications/{id}
func (h *StudioHandler) HandleDismissNotification(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(c *studio.Coordinator) error {
		c.DismissNotification(chi.URLParam(r, "id"))
		return nil
	})
}
