package studio

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
)

type notifyFunc func(level Level, message, description string, actions ...Action)

// SnippetBrowser is the state of the snippet management screen of one
// signed-in user: the active query and the items it displays.
//
// Items change only from server responses. After a create or update the
// returned record is merged in and the list re-filtered and re-sorted with
// the active query, so the display always holds only the user's records in
// query order.
type SnippetBrowser struct {
	snippets Snippets
	userID   string
	notify   notifyFunc
	logger   *slog.Logger

	mu    sync.Mutex
	query model.SnippetQuery
	items []model.Snippet
}

func newSnippetBrowser(snippets Snippets, userID string, notify notifyFunc, logger *slog.Logger) *SnippetBrowser {
	return &SnippetBrowser{
		snippets: snippets,
		userID:   userID,
		notify:   notify,
		logger:   logger,
		query:    model.SnippetQuery{UserID: userID}.Normalize(),
		items:    []model.Snippet{},
	}
}

// Query returns the active query.
func (b *SnippetBrowser) Query() model.SnippetQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Items returns a copy of the displayed list.
func (b *SnippetBrowser) Items() []model.Snippet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Refresh reloads the list with the active query.
func (b *SnippetBrowser) Refresh(ctx context.Context) ([]model.Snippet, error) {
	return b.SetQuery(ctx, b.Query())
}

// SetQuery replaces the search, language filter and sort, then reloads.
// The user scope cannot be changed.
func (b *SnippetBrowser) SetQuery(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error) {
	q.UserID = b.userID
	q = q.Normalize()

	items, err := b.snippets.List(ctx, q)
	if err != nil {
		b.logger.Error("failed to load snippets", slog.String("error", err.Error()))
		b.notify(LevelError, "Failed to load codes. Please try again.", "")
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.query = q
	b.items = b.reconcileLocked(items)
	return slices.Clone(b.items), nil
}

// Save creates a snippet from the form.
func (b *SnippetBrowser) Save(ctx context.Context, in service.SnippetInput) (*model.Snippet, error) {
	s, err := b.snippets.Create(ctx, b.userID, in)
	if err != nil {
		b.logger.Error("failed to save snippet", slog.String("error", err.Error()))
		b.notify(LevelError, "Failed to save code. Please try again.", "")
		return nil, err
	}
	b.absorb(*s)
	b.notify(LevelSuccess, "Code saved successfully!", "")
	return s, nil
}

// Update edits one snippet.
func (b *SnippetBrowser) Update(ctx context.Context, id string, u service.SnippetUpdate) (*model.Snippet, error) {
	s, err := b.snippets.Update(ctx, id, b.userID, u)
	if err != nil {
		b.logger.Error("failed to update snippet", slog.String("id", id), slog.String("error", err.Error()))
		b.notify(LevelError, "Failed to update code. Please try again.", "")
		return nil, err
	}
	b.absorb(*s)
	b.notify(LevelSuccess, "Code updated successfully!", "")
	return s, nil
}

// Delete removes one snippet. The item leaves the list only after the
// store confirmed the delete.
func (b *SnippetBrowser) Delete(ctx context.Context, id string) error {
	if err := b.snippets.Delete(ctx, id, b.userID); err != nil {
		b.logger.Error("failed to delete snippet", slog.String("id", id), slog.String("error", err.Error()))
		b.notify(LevelError, "Failed to delete code. Please try again.", "")
		return err
	}

	b.mu.Lock()
	b.items = slices.DeleteFunc(b.items, func(s model.Snippet) bool { return s.ID == id })
	b.mu.Unlock()

	b.notify(LevelSuccess, "Code deleted successfully!", "")
	return nil
}

// absorb merges a record returned by the store into the list.
func (b *SnippetBrowser) absorb(s model.Snippet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := slices.DeleteFunc(slices.Clone(b.items), func(x model.Snippet) bool { return x.ID == s.ID })
	b.items = b.reconcileLocked(append(items, s))
}

// reconcileLocked drops records outside the active query and sorts the
// rest.
func (b *SnippetBrowser) reconcileLocked(items []model.Snippet) []model.Snippet {
	out := make([]model.Snippet, 0, len(items))
	for _, s := range items {
		if b.query.Matches(s) {
			out = append(out, s)
		}
	}
	model.SortSnippets(out, b.query.SortBy, b.query.Order)
	return out
}
