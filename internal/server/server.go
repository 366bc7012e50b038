// Package server is the composition root: it builds the backends chosen
// by configuration, wires services and handlers, and runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → sqlite.DB (users, preferences, snippets) | postgrest.Store (snippets)
//	  → assistant: remote backend | gemini
//	  → executor:  remote compiler | docker sandbox
//	  → services → studio.Manager → handlers → chi router
//
// Every dependency is created in New and torn down by Close, in reverse
// order of creation.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/assistant/gemini"
	assistantRemote "github.com/sakif/code-studio/internal/assistant/remote"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/config"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/executor/docker"
	executorRemote "github.com/sakif/code-studio/internal/executor/remote"
	"github.com/sakif/code-studio/internal/handler"
	"github.com/sakif/code-studio/internal/middleware"
	"github.com/sakif/code-studio/internal/repository"
	"github.com/sakif/code-studio/internal/repository/postgrest"
	sqliteRepo "github.com/sakif/code-studio/internal/repository/sqlite"
	"github.com/sakif/code-studio/internal/service"
	"github.com/sakif/code-studio/internal/studio"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The server owns the database, the docker sandbox (when used) and every
// live studio session. Sessions persist their preferences on close, so the
// manager is closed before the database.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	sandbox *docker.Executor
	manager *studio.Manager
}

// New builds every backend selected by cfg and mounts all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === DATABASE ===
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.wire(); err != nil {
		s.closeBackends()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire() error {
	cfg := s.cfg
	backend := apiclient.New(cfg.BackendURL, cfg.HTTPTimeout)

	// === SNIPPET STORE ===
	var snippets repository.SnippetRepository = s.db
	if cfg.Store == config.StorePostgREST {
		snippets = postgrest.New(cfg.PostgREST.URL, cfg.PostgREST.Key, cfg.PostgREST.Table, cfg.HTTPTimeout)
	}

	// === ASSISTANT ===
	var ai assistant.Service = assistantRemote.New(backend)
	if cfg.Assistant == config.AssistantGemini {
		g, err := gemini.New(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return fmt.Errorf("creating gemini assistant: %w", err)
		}
		ai = g
	}

	// === EXECUTOR ===
	exec, endpoint, err := s.newExecutor()
	if err != nil {
		return err
	}

	// === AUTH ===
	// Without a JWT secret every visitor is anonymous and the sign-in
	// routes are not registered.
	var tokens *auth.TokenService
	if cfg.AuthEnabled() {
		tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set, sign-in is disabled")
	}

	// === SERVICES ===
	authService := service.NewAuthService(s.db, tokens, s.logger)
	snippetService := service.NewSnippetService(snippets, s.logger)
	settingsService := service.NewSettingsService(account.New(backend), s.logger)

	opts := studio.DefaultOptions()
	opts.InlineDebounce = cfg.InlineDebounce
	opts.ChatFallbackDelay = cfg.ChatFallbackDelay
	opts.ExecutorEndpoint = endpoint
	opts.IdleTimeout = cfg.SessionIdle
	opts.MaxSessions = cfg.MaxSessions
	s.manager = studio.NewManager(studio.Deps{
		Assistant:   ai,
		Executor:    exec,
		Snippets:    snippetService,
		Preferences: s.db,
		Logger:      s.logger,
	}, opts)

	// === HANDLERS ===
	secure := !cfg.IsDevelopment()
	corsOrigins, wsOrigins := allowedOrigins(cfg)
	sessions := handler.NewSessions(s.manager, authService)

	studioHandler := handler.NewStudioHandler(sessions, s.logger)
	eventsHandler := handler.NewEventsHandler(sessions, wsOrigins, s.logger)
	snippetHandler := handler.NewSnippetHandler(sessions, snippetService, s.logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, s.logger)
	executeHandler := handler.NewExecuteHandler(exec, s.logger)

	var authHandler *handler.AuthHandler
	if tokens != nil {
		provider := auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
		authHandler = handler.NewAuthHandler(provider, authService, sessions, cfg.FrontendURL, secure, s.logger)
	}

	// === MIDDLEWARE ===
	// Order matters: request IDs exist before the logger reads them, and
	// Recoverer sits inside Logger so a panic is still logged as a 500.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(corsOrigins))
	s.router.Use(auth.Session(tokens, secure))

	// === ROUTES ===
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	if authHandler != nil {
		s.router.Route("/auth", func(r chi.Router) {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/logout", authHandler.HandleLogout)
		})
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/compiler/execute", executeHandler.HandleExecute)

		r.Route("/studio", func(r chi.Router) {
			studioHandler.Routes(r)
			r.Method(http.MethodGet, "/events", eventsHandler)
		})

		// Everything below needs a signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			if authHandler != nil {
				r.Get("/me", authHandler.HandleMe)
			}
			r.Route("/snippets", snippetHandler.Routes)
			settingsHandler.Routes(r)
		})
	})

	return nil
}

// newExecutor returns the configured executor and the endpoint shown in
// connection error output.
func (s *Server) newExecutor() (executor.Executor, string, error) {
	if s.cfg.Executor == config.ExecutorDocker {
		dcfg := docker.DefaultConfig()
		dcfg.PoolSize = s.cfg.Docker.PoolSize
		dcfg.Timeout = s.cfg.Docker.Timeout
		sandbox, err := docker.New(dcfg, s.logger)
		if err != nil {
			return nil, "", fmt.Errorf("creating docker executor: %w", err)
		}
		s.sandbox = sandbox
		return sandbox, "docker://local", nil
	}
	compiler := executorRemote.New(apiclient.New(s.cfg.CompilerURL, s.cfg.HTTPTimeout))
	return compiler, compiler.Endpoint(), nil
}

// allowedOrigins returns the CORS origins and the WebSocket host patterns.
// Development allows any origin; production only FrontendURL.
func allowedOrigins(cfg *config.Config) (cors, ws []string) {
	if cfg.IsDevelopment() {
		return []string{"*"}, []string{"*"}
	}
	u, err := url.Parse(cfg.FrontendURL)
	if err != nil || u.Host == "" {
		return []string{cfg.FrontendURL}, nil
	}
	return []string{cfg.FrontendURL}, []string{u.Host}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish
//  3. Close studio sessions (commits animations, persists preferences)
//  4. Close the sandbox and the database
func (s *Server) Start() error {
	defer s.closeBackends()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: assistant calls and the event stream can
		// legitimately outlive any fixed deadline.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("executor", s.cfg.Executor),
			slog.String("assistant", s.cfg.Assistant),
			slog.String("store", s.cfg.Store),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases every backend without serving. Start calls it itself.
func (s *Server) Close() {
	s.closeBackends()
}

func (s *Server) closeBackends() {
	if s.manager != nil {
		s.manager.Close()
		s.manager = nil
	}
	if s.sandbox != nil {
		if err := s.sandbox.Close(); err != nil {
			s.logger.Warn("closing docker executor", slog.String("error", err.Error()))
		}
		s.sandbox = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database", slog.String("error", err.Error()))
		}
		s.db = nil
	}
}
