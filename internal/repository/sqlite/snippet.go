package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, user_id, title, description, code, language, created_at, updated_at`

// sortColumns whitelists ORDER BY targets; the query text is never built
// from caller input directly.
var sortColumns = map[string]string{
	model.SortUpdatedAt: "updated_at",
	model.SortCreatedAt: "created_at",
	model.SortTitle:     "title",
	model.SortLanguage:  "language",
}

// Create inserts snippet, generating its ID and timestamps.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_codes (`+snippetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.UserID,
		snippet.Title,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	return nil
}

// GetByID returns the snippet only if userID owns it.
func (db *DB) GetByID(ctx context.Context, id, userID string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM user_codes WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	s, err := scanSnippet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return s, nil
}

// List applies the owner filter, the optional language filter and a
// case-insensitive substring search over title, description and code.
//
// The search runs in Go with model.MatchesSearch: SQLite's lower() folds
// ASCII only, so "ünï" would never match "Ünïcode".
func (db *DB) List(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error) {
	q = q.Normalize()

	var (
		where = []string{"user_id = ?"}
		args  = []any{q.UserID}
	)
	if q.Language != "" {
		where = append(where, "language = ?")
		args = append(args, q.Language)
	}

	direction := "DESC"
	if q.Order == model.OrderAsc {
		direction = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM user_codes WHERE %s ORDER BY %s %s, id %s`,
		snippetColumns, strings.Join(where, " AND "), sortColumns[q.SortBy], direction, direction)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		if model.MatchesSearch(*s, q.Search) {
			snippets = append(snippets, *s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	return snippets, nil
}

// Update matches on id and user_id. Zero rows affected means the snippet
// does not exist for this owner.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE user_codes
		 SET title = ?, description = ?, code = ?, language = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		snippet.Title,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.UpdatedAt,
		snippet.ID,
		snippet.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	stored, err := db.GetByID(ctx, snippet.ID, snippet.UserID)
	if err != nil {
		return err
	}
	*snippet = *stored
	return nil
}

func (db *DB) Delete(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_codes WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(r rowScanner) (*model.Snippet, error) {
	var s model.Snippet
	if err := r.Scan(
		&s.ID, &s.UserID, &s.Title, &s.Description, &s.Code, &s.Language,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
