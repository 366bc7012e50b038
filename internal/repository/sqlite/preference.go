package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
)

var _ repository.PreferenceRepository = (*DB)(nil)

func (db *DB) LoadPreferences(ctx context.Context, key string) (*model.Preferences, error) {
	var p model.Preferences
	err := db.conn.QueryRowContext(ctx,
		`SELECT theme, code, language FROM studio_preferences WHERE session_key = ?`, key,
	).Scan(&p.Theme, &p.Editor.Code, &p.Editor.Language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("preferences", key)
		}
		return nil, fmt.Errorf("sqlite: loading preferences %s: %w", key, err)
	}
	return &p, nil
}

// SavePreferences replaces the stored row for key.
func (db *DB) SavePreferences(ctx context.Context, key string, p model.Preferences) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO studio_preferences (session_key, theme, code, language, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET
			theme = excluded.theme,
			code = excluded.code,
			language = excluded.language,
			updated_at = excluded.updated_at`,
		key, p.Theme, p.Editor.Code, p.Editor.Language, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving preferences %s: %w", key, err)
	}
	return nil
}
