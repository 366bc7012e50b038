// Package service contains the business logic layer of the studio.
//
// THE THREE LAYERS:
//
//	Handler / CLI / Coordinator → parse input, render results
//	Service                     → validate, enforce ownership, orchestrate
//	Repository                  → read/write the snippet store
//
// Services take repository interfaces, never concrete stores, so the same
// rules apply whether snippets live in the local SQLite file or behind the
// PostgREST API, and tests can inject in-memory mocks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
)

// Validation limits.
const (
	MaxSnippetTitleLength = 100
	MaxCodeLength         = 100000 // ~100KB of code
)

// SnippetService handles business logic for saved snippets.
//
// OWNERSHIP:
// Every operation is scoped to a user ID. The store is trusted to filter by
// user_id, and the service checks the owner again on every record it gets
// back. A record that fails the check is reported exactly like a missing
// one, so callers cannot probe for other users' IDs.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// SnippetInput is the caller-supplied part of a new snippet.
type SnippetInput struct {
	Title       string
	Description string
	Code        string
	Language    string
}

// SnippetUpdate lists the fields to change. Nil means "leave as is".
type SnippetUpdate struct {
	Title       *string
	Description *string
	Code        *string
	Language    *string
}

// Create validates and stores a new snippet owned by userID.
func (s *SnippetService) Create(ctx context.Context, userID string, in SnippetInput) (*model.Snippet, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Code:        in.Code,
		Language:    strings.ToLower(strings.TrimSpace(in.Language)),
		UserID:      userID,
	}
	if snippet.Language == "" {
		snippet.Language = editor.DefaultLanguage
	}
	if err := validateSnippet(snippet); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("userID", userID),
		slog.String("language", snippet.Language),
	)
	return snippet, nil
}

// Get returns one of userID's snippets.
func (s *SnippetService) Get(ctx context.Context, id, userID string) (*model.Snippet, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != userID {
		return nil, apperror.NotFound("snippet", id)
	}
	return snippet, nil
}

// List returns the caller's snippets filtered and ordered by q.
// Every row is re-checked with q.Matches, so rows of other owners, other
// languages or a looser store-side search never reach the caller.
func (s *SnippetService) List(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}
	q = q.Normalize()

	items, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("userID", q.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	matched := items[:0]
	for _, item := range items {
		if q.Matches(item) {
			matched = append(matched, item)
		}
	}
	if matched == nil {
		matched = []model.Snippet{}
	}
	return matched, nil
}

// Update applies u to one of userID's snippets and returns the stored row.
//
// STRATEGY: fetch then update. The fetch proves ownership and gives the
// validator a complete record to check after the patch is applied.
func (s *SnippetService) Update(ctx context.Context, id, userID string, u SnippetUpdate) (*model.Snippet, error) {
	snippet, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if u.Title != nil {
		snippet.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		snippet.Description = strings.TrimSpace(*u.Description)
	}
	if u.Code != nil {
		snippet.Code = *u.Code
	}
	if u.Language != nil {
		snippet.Language = strings.ToLower(strings.TrimSpace(*u.Language))
	}
	if err := validateSnippet(snippet); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}
	if snippet.UserID != userID {
		return nil, apperror.NotFound("snippet", id)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))
	return snippet, nil
}

// Delete removes one of userID's snippets.
func (s *SnippetService) Delete(ctx context.Context, id, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthenticated("sign in to manage snippets")
	}
	return nil
}

func validateSnippet(s *model.Snippet) error {
	if s.Title == "" {
		return apperror.ValidationFailed("title", "snippet title is required")
	}
	if len([]rune(s.Title)) > MaxSnippetTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxSnippetTitleLength))
	}
	if len(s.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	if !editor.IsCatalogLanguage(s.Language) {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", s.Language))
	}
	return nil
}
