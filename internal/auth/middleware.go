package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// Cookie names.
const (
	TokenCookie   = "token"
	SessionCookie = "sid"
)

const sessionCookieMaxAge = 365 * 24 * time.Hour

// contextKey is package-private so no other package can read or shadow
// the values stored here.
type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

// Session resolves who is behind a request and guarantees every visitor a
// studio session.
//
// A valid "token" cookie puts the user ID into the context. Independently,
// the browser's "sid" cookie is read or minted (an xid) so SessionKey always
// has something to key the studio on. tokens may be nil when sign-in is
// disabled; every request is then anonymous.
func Session(tokens *TokenService, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tokens != nil {
				if userID, err := extractUserID(r, tokens); err == nil {
					ctx = WithUserID(ctx, userID)
				}
			}

			sid := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				sid = c.Value
			}
			if _, err := xid.FromString(sid); err != nil {
				sid = xid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx = context.WithValue(ctx, sessionIDKey, sid)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a signed-in user with 401.
//
// It trusts a user ID already placed by Session and otherwise validates the
// token cookie itself, so it also works on routers without Session.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if tokens == nil {
				unauthorized(w)
				return
			}
			userID, err := extractUserID(r, tokens)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}` + "\n"))
}

// WithUserID returns a context carrying a signed-in user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionKey identifies the studio a request belongs to: "browser:<sid>".
// The studio follows the browser, not the account, so signing in or out
// keeps the buffer and theme. It returns "" outside Session.
func SessionKey(ctx context.Context) string {
	if sid, ok := ctx.Value(sessionIDKey).(string); ok && sid != "" {
		return "browser:" + sid
	}
	return ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
