package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/handler"
	"github.com/sakif/code-studio/internal/model"
	sqliteRepo "github.com/sakif/code-studio/internal/repository/sqlite"
	"github.com/sakif/code-studio/internal/service"
	"github.com/sakif/code-studio/internal/studio"
)

const testUserHeader = "X-Test-User"

func newAPIClient(url string) *apiclient.Client {
	return apiclient.New(url, time.Second)
}

// stubAssistant answers every call with fixed values.
type stubAssistant struct {
	explanation string
	suggestion  string
	inline      string
	mod         *assistant.Modification
	err         error
}

func (a *stubAssistant) Explain(ctx context.Context, req assistant.ExplainRequest) (string, error) {
	return a.explanation, a.err
}

func (a *stubAssistant) Suggest(ctx context.Context, req assistant.SuggestRequest) (string, error) {
	return a.suggestion, a.err
}

func (a *stubAssistant) InlineComplete(ctx context.Context, req assistant.InlineRequest) (string, error) {
	return a.inline, a.err
}

func (a *stubAssistant) ModifyCode(ctx context.Context, req assistant.ModifyRequest) (*assistant.Modification, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.mod, nil
}

// testEnv is a studio backed by in-memory sqlite and stub collaborators.
type testEnv struct {
	db       *sqliteRepo.DB
	user     *model.User
	ai       *stubAssistant
	exec     *MockExecutor
	manager  *studio.Manager
	sessions *handler.Sessions
	snippets *service.SnippetService
	router   chi.Router
	sids     map[string]string // user ID -> browser sid
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets tune adjust the studio options before the manager
// is built.
func newTestEnvWith(t *testing.T, tune func(*studio.Options)) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)

	user := &model.User{GitHubID: 583231, Login: "octocat", Name: "Mona"}
	require.NoError(t, db.Upsert(context.Background(), user))

	env := &testEnv{
		db:   db,
		user: user,
		ai:   &stubAssistant{},
		sids: map[string]string{"": anonSID},
		exec: &MockExecutor{ReturnRes: &executor.Result{
			Stdout: "hello\n",
			Status: executor.Status{ID: executor.StatusAccepted, Description: "Accepted"},
		}},
	}

	logger := discardLogger()
	env.snippets = service.NewSnippetService(db, logger)
	authService := service.NewAuthService(db, nil, logger)

	opts := studio.DefaultOptions()
	opts.InlineDebounce = 0
	opts.ChatFallbackDelay = 0
	opts.ChatPace = editor.Pace{}
	opts.PromptPace = editor.Pace{}
	if tune != nil {
		tune(&opts)
	}
	env.manager = studio.NewManager(studio.Deps{
		Assistant:   env.ai,
		Executor:    env.exec,
		Snippets:    env.snippets,
		Preferences: db,
		Logger:      logger,
	}, opts)
	env.sessions = handler.NewSessions(env.manager, authService)

	studioHandler := handler.NewStudioHandler(env.sessions, logger)
	snippetHandler := handler.NewSnippetHandler(env.sessions, env.snippets, logger)

	r := chi.NewRouter()
	r.Use(withTestUser)
	r.Use(auth.Session(nil, false))
	r.Route("/api/studio", studioHandler.Routes)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(nil))
		r.Route("/api/snippets", snippetHandler.Routes)
	})
	env.router = r

	t.Cleanup(func() {
		env.manager.Close()
		db.Close()
	})
	return env
}

// withTestUser signs the request in as the X-Test-User header's user ID.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(testUserHeader); id != "" {
			r = r.WithContext(auth.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// do sends one request from userID's own browser. userID "" is an
// anonymous visitor using anonSID.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	sid, ok := e.sids[userID]
	if !ok {
		sid = xid.New().String()
		e.sids[userID] = sid
	}
	return e.doFrom(t, sid, method, path, userID, body)
}

// doFrom sends one request from the browser holding sid.
func (e *testEnv) doFrom(t *testing.T, sid, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid})

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// anonSID is a valid xid so auth.Session keeps it.
const anonSID = "9m4e2mr0ui3e8a215n4g"

// browserKey is the manager key of the browser holding sid.
func browserKey(sid string) string { return "browser:" + sid }

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
