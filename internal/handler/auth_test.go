package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/handler"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
)

// mockProvider is a hand-written auth.Provider.
type mockProvider struct {
	user *auth.GitHubUser
	err  error
	code string
}

func (p *mockProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (p *mockProvider) Exchange(ctx context.Context, code string) (*auth.GitHubUser, error) {
	p.code = code
	return p.user, p.err
}

type authFixture struct {
	env      *testEnv
	provider *mockProvider
	tokens   *auth.TokenService
	handler  *handler.AuthHandler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	env := newTestEnv(t)
	tokens, err := auth.NewTokenService("test-secret-at-least-16")
	require.NoError(t, err)

	provider := &mockProvider{user: &auth.GitHubUser{ID: 583231, Login: "octocat", Name: "Mona"}}
	authService := service.NewAuthService(env.db, tokens, discardLogger())
	return &authFixture{
		env:      env,
		provider: provider,
		tokens:   tokens,
		handler:  handler.NewAuthHandler(provider, authService, env.sessions, "", false, discardLogger()),
	}
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_LoginSetsStateAndRedirects(t *testing.T) {
	f := newAuthFixture(t)

	rr := httptest.NewRecorder()
	f.handler.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := cookieNamed(rr, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Contains(t, rr.Header().Get("Location"), "state="+state.Value)
}

func TestAuthHandler_Callback(t *testing.T) {
	callback := func(f *authFixture, query, cookieState string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
		if cookieState != "" {
			req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
		}
		rr := httptest.NewRecorder()
		f.handler.HandleGitHubCallback(rr, req)
		return rr
	}

	t.Run("success issues a token for the existing user", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := callback(f, "code=abc&state=s1", "s1")

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		assert.Equal(t, "abc", f.provider.code)

		token := cookieNamed(rr, auth.TokenCookie)
		require.NotNil(t, token)
		userID, err := f.tokens.Validate(token.Value)
		require.NoError(t, err)
		assert.Equal(t, f.env.user.ID, userID, "the same GitHub ID maps to the same user")
	})

	t.Run("missing state cookie", func(t *testing.T) {
		f := newAuthFixture(t)
		rr := callback(f, "code=abc&state=s1", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		f := newAuthFixture(t)
		rr := callback(f, "code=abc&state=s1", "s2")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, f.provider.code)
	})

	t.Run("user denied", func(t *testing.T) {
		f := newAuthFixture(t)
		rr := callback(f, "error=access_denied&state=s1", "s1")
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := newAuthFixture(t)
		f.provider.err = errors.New("bad code")
		rr := callback(f, "code=abc&state=s1", "s1")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Nil(t, cookieNamed(rr, auth.TokenCookie))
	})
}

func TestAuthHandler_LogoutSignsTheBrowserOut(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.env.doFrom(t, anonSID, http.MethodPut, "/api/studio/code", f.env.user.ID, map[string]string{"code": "x := 1"})
	require.Equal(t, http.StatusOK, rr.Code)
	c, ok := f.env.manager.Lookup(browserKey(anonSID))
	require.True(t, ok)
	require.Equal(t, f.env.user.ID, c.UserID())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: anonSID})
	rr = httptest.NewRecorder()
	auth.Session(nil, false)(http.HandlerFunc(f.handler.HandleLogout)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	token := cookieNamed(rr, auth.TokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, -1, token.MaxAge)

	assert.Empty(t, c.UserID())
	assert.Nil(t, c.Browser())
	assert.Equal(t, "x := 1", c.Snapshot().Code)
}

func TestAuthHandler_Me(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), f.env.user.ID))
	rr := httptest.NewRecorder()
	f.handler.HandleMe(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "octocat", decode[model.User](t, rr).Login)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "missing"))
	rr = httptest.NewRecorder()
	f.handler.HandleMe(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
