package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
)

// extensionLanguages guesses a language from a file name.
var extensionLanguages = map[string]string{
	".js":   "javascript",
	".mjs":  "javascript",
	".py":   "python",
	".java": "java",
	".html": "html",
	".css":  "css",
	".ts":   "typescript",
	".cpp":  "cpp",
	".cc":   "cpp",
	".json": "json",
}

func languageFor(path, flag string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return editor.DefaultLanguage
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(b), nil
}

// ErrRunFailed is returned by "run" when the program did not finish
// successfully; its output has already been printed.
var ErrRunFailed = errors.New("run failed")

func newRunCommand(app func() *App) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a file on the configured executor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(args[0])
			if err != nil {
				return err
			}
			a := app()
			out := cmd.OutOrStdout()

			var view executor.OutputView
			if editor.IsBlank(code) {
				view = executor.EmptyBufferView()
			} else {
				start := time.Now()
				res, err := a.Executor.Execute(cmd.Context(), executor.Request{
					SourceCode: code,
					Language:   languageFor(args[0], language),
				})
				if err != nil {
					view = executor.FailureView(err, time.Since(start), a.Endpoint)
				} else {
					view = executor.ResultView(res, time.Since(start))
				}
			}

			fmt.Fprintln(out, view.Text)
			if view.Status != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %dms\n", view.Status, view.ElapsedMS)
			}
			if view.Type != executor.OutputSuccess {
				return ErrRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "language ID (default: from the file extension)")
	return cmd
}

func newExplainCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain FILE",
		Short: "Ask the assistant to explain a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(args[0])
			if err != nil {
				return err
			}
			if editor.IsBlank(code) {
				return fmt.Errorf("%s is empty", args[0])
			}
			text, err := app().Assistant.Explain(cmd.Context(), assistant.ExplainRequest{Code: code})
			if err != nil {
				return fmt.Errorf("explaining code: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newSnippetsCommand(app func() *App, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippets",
		Short: "Manage saved snippets",
	}

	var q model.SnippetQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List your snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			query := q
			query.UserID = userID
			items, err := app().Snippets.List(cmd.Context(), query)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tLANGUAGE\tUPDATED")
			for _, s := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Language, s.UpdatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&q.Search, "search", "", "match title, description or code")
	list.Flags().StringVar(&q.Language, "language", model.LanguageAll, "language filter")
	list.Flags().StringVar(&q.SortBy, "sort", model.SortUpdatedAt, "sort field: updated_at, created_at, title, language")
	list.Flags().StringVar(&q.Order, "order", model.OrderDesc, "asc or desc")

	var in service.SnippetInput
	var language string
	save := &cobra.Command{
		Use:   "save FILE",
		Short: "Save a file as a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			code, err := readSource(args[0])
			if err != nil {
				return err
			}
			input := in
			input.Code = code
			input.Language = languageFor(args[0], language)
			if input.Title == "" {
				input.Title = filepath.Base(args[0])
			}
			s, err := app().Snippets.Create(cmd.Context(), userID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", s.ID, s.Title)
			return nil
		},
	}
	save.Flags().StringVar(&in.Title, "title", "", "snippet title (default: file name)")
	save.Flags().StringVar(&in.Description, "description", "", "snippet description")
	save.Flags().StringVarP(&language, "language", "l", "", "language ID (default: from the file extension)")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			if err := app().Snippets.Delete(cmd.Context(), args[0], userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, save, del)
	return cmd
}

func newUsageCommand(app func() *App, opts *options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show assistant usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			stats, err := app().Settings.Stats(cmd.Context(), userID, days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s := stats.Summary; s != nil {
				fmt.Fprintf(out, "Requests: %.0f (%.0f ok, %.0f failed)\n", s.TotalRequests, s.SuccessfulRequests, s.FailedRequests)
				fmt.Fprintf(out, "Success rate: %.1f%%\n", s.SuccessRate)
				fmt.Fprintf(out, "Tokens: %.0f\n", s.TotalTokens)
			}
			if tr := account.Trends(stats.DailyUsage); tr != nil {
				fmt.Fprintf(out, "Trend: %s %.2f%% (last 7 days vs previous)\n", tr.Direction, tr.Trend)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nFEATURE\tREQUESTS")
			for _, e := range stats.EndpointUsage {
				fmt.Fprintf(tw, "%s\t%.0f\n", e.Endpoint, e.TotalRequests)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&days, "days", account.DefaultStatsDays, "window in days")
	return cmd
}

func newAPIKeyCommand(app func() *App, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage your own assistant API key",
	}

	printStatus := func(cmd *cobra.Command, s *model.APIKeyStatus) {
		out := cmd.OutOrStdout()
		if s.HasAPIKey {
			fmt.Fprintf(out, "personal key: %s\n", s.MaskedKey)
			return
		}
		fmt.Fprintln(out, "using the shared key")
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether a personal key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			s, err := app().Settings.KeyStatus(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printStatus(cmd, s)
			return nil
		},
	}

	save := &cobra.Command{
		Use:   "save KEY",
		Short: "Store a personal key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			s, err := app().Settings.SaveKey(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			printStatus(cmd, s)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the personal key and use the shared one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser()
			if err != nil {
				return err
			}
			s, err := app().Settings.DeleteKey(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printStatus(cmd, s)
			return nil
		},
	}

	cmd.AddCommand(status, save, del)
	return cmd
}
