package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts a new user or refreshes the profile fields of the row with
// the same GitHubID. user.ID is set in both cases.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	var createdAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID, &createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	now := time.Now().UTC()
	if existingID != "" {
		user.ID = existingID
		user.CreatedAt = createdAt
		user.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, name = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login, user.Name, user.Email, user.AvatarURL, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, name, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Login, user.Name, user.Email, user.AvatarURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, name, email, avatar_url, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.GitHubID, &u.Login, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}
