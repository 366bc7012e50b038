// Package repository declares the persistence contracts of the studio.
// Implementations live in subpackages (sqlite, postgrest); services depend
// only on these interfaces.
package repository

import (
	"context"

	"github.com/sakif/code-studio/internal/model"
)

// SnippetRepository is the SnippetStore: per-user CRUD over saved code.
//
// Every method that touches an existing record takes the owner's user ID
// and must only match rows carrying it. A row owned by someone else is
// reported as apperror.ErrNotFound, never as a different error.
type SnippetRepository interface {
	// Create assigns ID and timestamps and stores the snippet.
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id, userID string) (*model.Snippet, error)
	// List returns the query owner's snippets filtered and ordered by q.
	List(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error)
	// Update writes all mutable fields plus a fresh updated_at, matching on
	// both snippet.ID and snippet.UserID, and refreshes snippet from the
	// stored row.
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id, userID string) error
}

// UserRepository persists identities returned by the auth provider.
type UserRepository interface {
	// Upsert inserts or refreshes the user keyed by GitHubID and sets user.ID.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// PreferenceRepository is the local persisted state of a studio session
// (theme plus editor code and language), keyed by session key.
type PreferenceRepository interface {
	// LoadPreferences returns apperror.ErrNotFound when nothing is stored.
	LoadPreferences(ctx context.Context, key string) (*model.Preferences, error)
	SavePreferences(ctx context.Context, key string, prefs model.Preferences) error
}
