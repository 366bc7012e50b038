package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler manages the GitHub OAuth login flow and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//   - HandleLogout         → clear the JWT cookie and end the user's studio session
//   - HandleMe             → return the currently logged-in user's profile
type AuthHandler struct {
	provider auth.Provider
	auth     *service.AuthService
	sessions *Sessions
	// redirectURL is where the browser lands after sign-in and sign-out.
	redirectURL string
	secure      bool
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. redirectURL defaults to "/".
func NewAuthHandler(
	provider auth.Provider,
	authService *service.AuthService,
	sessions *Sessions,
	redirectURL string,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &AuthHandler{
		provider:    provider,
		auth:        authService,
		sessions:    sessions,
		redirectURL: redirectURL,
		secure:      secure,
		logger:      logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub; the callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and issue a JWT (AuthService.LoginGitHub)
//  4. Store the JWT in an HttpOnly cookie
//  5. Redirect to the studio
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.redirectURL+"?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Upsert user and issue token ---
	result, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 4: Issue JWT cookie ---
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 5: Redirect to the studio ---
	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie and signs the browser's studio out.
// The buffer and theme stay with the browser.
//
// HTTP: POST /auth/logout
//
// The token stays technically valid until it expires, but without the
// cookie the browser no longer sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUserByID(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
