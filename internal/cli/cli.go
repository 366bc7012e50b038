// Package cli is the studio's command-line surface. It drives the same
// services as the HTTP server: run and explain a file, manage saved
// snippets, and read usage and API key settings.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/assistant/gemini"
	assistantRemote "github.com/sakif/code-studio/internal/assistant/remote"
	"github.com/sakif/code-studio/internal/config"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/executor/docker"
	executorRemote "github.com/sakif/code-studio/internal/executor/remote"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
	"github.com/sakif/code-studio/internal/repository/postgrest"
	sqliteRepo "github.com/sakif/code-studio/internal/repository/sqlite"
	"github.com/sakif/code-studio/internal/service"
	"github.com/sakif/code-studio/internal/studio"
)

// Settings is the part of the settings service the CLI uses.
// *service.SettingsService satisfies it.
type Settings interface {
	Stats(ctx context.Context, userID string, days int) (*account.Stats, error)
	KeyStatus(ctx context.Context, userID string) (*model.APIKeyStatus, error)
	SaveKey(ctx context.Context, userID, apiKey string) (*model.APIKeyStatus, error)
	DeleteKey(ctx context.Context, userID string) (*model.APIKeyStatus, error)
}

// App holds the backends a command needs.
type App struct {
	Executor  executor.Executor
	Assistant assistant.Service
	Snippets  studio.Snippets
	Settings  Settings
	// Endpoint is shown when the executor cannot be reached.
	Endpoint string
	// Close releases the backends; may be nil.
	Close func()
}

// Loader builds the App once per invocation.
type Loader func(ctx context.Context) (*App, error)

type options struct {
	user string
}

// NewRootCommand returns the studio command tree. Backends are built by
// load only when a subcommand runs, so --help works without any config.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &options{}
	var app *App

	root := &cobra.Command{
		Use:           "studio",
		Short:         "AI code studio",
		Long:          `Run, explain and manage code snippets against the studio backends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return fmt.Errorf("initializing backends: %w", err)
			}
			app = a
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.user, "user", os.Getenv("STUDIO_USER"), "user ID for snippets, usage and API key commands")

	appFn := func() *App { return app }
	root.AddCommand(
		newRunCommand(appFn),
		newExplainCommand(appFn),
		newSnippetsCommand(appFn, opts),
		newUsageCommand(appFn, opts),
		newAPIKeyCommand(appFn, opts),
	)
	closeAfter(root, func() {
		if app != nil && app.Close != nil {
			app.Close()
		}
		app = nil
	})
	return root
}

// closeAfter makes every runnable command release the backends when it
// returns, including on error. PostRun hooks are skipped on error.
func closeAfter(cmd *cobra.Command, release func()) {
	for _, sub := range cmd.Commands() {
		closeAfter(sub, release)
	}
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer release()
			return run(cmd, args)
		}
	}
}

var errNoUser = errors.New("--user (or STUDIO_USER) is required for this command")

func (o *options) requireUser() (string, error) {
	if o.user == "" {
		return "", errNoUser
	}
	return o.user, nil
}

// LoadFromEnv builds the backends from the same configuration the server
// reads.
func LoadFromEnv(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Command output owns stdout; logs go to stderr and only when notable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: max(cfg.LogLevel, slog.LevelWarn)}))
	backend := apiclient.New(cfg.BackendURL, cfg.HTTPTimeout)

	app := &App{}
	var closers []func()
	app.Close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	var snippets repository.SnippetRepository
	if cfg.Store == config.StorePostgREST {
		snippets = postgrest.New(cfg.PostgREST.URL, cfg.PostgREST.Key, cfg.PostgREST.Table, cfg.HTTPTimeout)
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fail(fmt.Errorf("creating database directory: %w", err))
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		snippets = db
	}
	app.Snippets = service.NewSnippetService(snippets, logger)
	app.Settings = service.NewSettingsService(account.New(backend), logger)

	if cfg.Assistant == config.AssistantGemini {
		g, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return fail(err)
		}
		app.Assistant = g
	} else {
		app.Assistant = assistantRemote.New(backend)
	}

	if cfg.Executor == config.ExecutorDocker {
		dcfg := docker.DefaultConfig()
		dcfg.PoolSize = 1
		dcfg.Timeout = cfg.Docker.Timeout
		sandbox, err := docker.New(dcfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := sandbox.Close(); err != nil {
				logger.Warn("closing docker executor", slog.String("error", err.Error()))
			}
		})
		app.Executor = sandbox
		app.Endpoint = "docker://local"
	} else {
		compiler := executorRemote.New(apiclient.New(cfg.CompilerURL, cfg.HTTPTimeout))
		app.Executor = compiler
		app.Endpoint = compiler.Endpoint()
	}

	return app, nil
}
