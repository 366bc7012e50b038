package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// mockSnippetRepo implements repository.SnippetRepository in memory.
// leakOwner makes List and GetByID ignore the owner filter, simulating a
// store that forgot to scope its query, so the service's own re-check can
// be exercised.

type mockSnippetRepo struct {
	snippets  map[string]*model.Snippet
	nextID    int
	leakOwner bool
	failWith  error
}

func newMockRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id, userID string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok || (!m.leakOwner && snippet.UserID != userID) {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) List(_ context.Context, q model.SnippetQuery) ([]model.Snippet, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := make([]model.Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		if m.leakOwner || q.Matches(*s) {
			result = append(result, *s)
		}
	}
	model.SortSnippets(result, q.SortBy, q.Order)
	return result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	existing, ok := m.snippets[snippet.ID]
	if !ok || existing.UserID != snippet.UserID {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id, userID string) error {
	existing, ok := m.snippets[id]
	if !ok || existing.UserID != userID {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func newTestService(t *testing.T) (*SnippetService, *mockSnippetRepo) {
	t.Helper()
	repo := newMockRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewSnippetService(repo, logger), repo
}

func mustCreate(t *testing.T, svc *SnippetService, userID, title string) *model.Snippet {
	t.Helper()
	s, err := svc.Create(context.Background(), userID, SnippetInput{Title: title, Code: "print(1)", Language: "python"})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	return s
}

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "user-1", SnippetInput{
		Title:       "  hello world  ",
		Description: "  a test  ",
		Code:        "print('hi')",
		Language:    "Python",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
	if snippet.Title != "hello world" {
		t.Errorf("Title = %q, want trimmed %q", snippet.Title, "hello world")
	}
	if snippet.Description != "a test" {
		t.Errorf("Description = %q, want trimmed %q", snippet.Description, "a test")
	}
	if snippet.Language != "python" {
		t.Errorf("Language = %q, want %q", snippet.Language, "python")
	}
	if snippet.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", snippet.UserID, "user-1")
	}
}

func TestCreate_DefaultsLanguage(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "user-1", SnippetInput{Title: "t", Code: "x"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.Language != "javascript" {
		t.Errorf("Language = %q, want javascript", snippet.Language)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SnippetInput
	}{
		{"empty title", SnippetInput{Title: "", Code: "x"}},
		{"whitespace title", SnippetInput{Title: "   ", Code: "x"}},
		{"title too long", SnippetInput{Title: strings.Repeat("a", MaxSnippetTitleLength+1), Code: "x"}},
		{"code too long", SnippetInput{Title: "t", Code: strings.Repeat("a", MaxCodeLength+1)}},
		{"unknown language", SnippetInput{Title: "t", Code: "x", Language: "cobol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.Create(context.Background(), "user-1", tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreate_CatalogLanguageAccepted(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "user-1", SnippetInput{Title: "t", Code: "x", Language: "typescript"}); err != nil {
		t.Errorf("Create() error = %v, want nil for catalog language", err)
	}
}

func TestCreate_RequiresUser(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Create(context.Background(), "", SnippetInput{Title: "t", Code: "x"})
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
	if len(repo.snippets) != 0 {
		t.Error("Create() stored a snippet without a user")
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failWith = errors.New("disk full")

	if _, err := svc.Create(context.Background(), "user-1", SnippetInput{Title: "t", Code: "x"}); err == nil {
		t.Fatal("Create() should surface store failures")
	}
}

// =========================================================================
// GET / LIST TESTS
// =========================================================================

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	svc, repo := newTestService(t)
	created := mustCreate(t, svc, "user-a", "mine")

	repo.leakOwner = true
	_, err := svc.Get(context.Background(), created.ID, "user-b")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGet_EmptyID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), " ", "user-a")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestList_OnlyCallersSnippets(t *testing.T) {
	svc, repo := newTestService(t)
	mustCreate(t, svc, "user-a", "a1")
	mustCreate(t, svc, "user-b", "b1")
	mustCreate(t, svc, "user-a", "a2")

	repo.leakOwner = true
	items, err := svc.List(context.Background(), model.SnippetQuery{UserID: "user-a"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List() returned %d items, want 2", len(items))
	}
	for _, it := range items {
		if it.UserID != "user-a" {
			t.Errorf("List() leaked snippet %s owned by %s", it.ID, it.UserID)
		}
	}
}

func TestList_DropsRowsOutsideTheSearch(t *testing.T) {
	svc, repo := newTestService(t)
	mustCreate(t, svc, "user-a", "a_b")
	mustCreate(t, svc, "user-a", "axb")
	mustCreate(t, svc, "user-a", "Ünïcode")

	// The store ignores every filter, like an ilike pattern with an
	// unescaped "_" would for "axb".
	repo.leakOwner = true
	for term, want := range map[string]string{"a_b": "a_b", "ünï": "Ünïcode"} {
		items, err := svc.List(context.Background(), model.SnippetQuery{UserID: "user-a", Search: term})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(items) != 1 || items[0].Title != want {
			t.Errorf("List(search=%q) = %v, want only %q", term, items, want)
		}
	}
}

func TestList_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	items, err := svc.List(context.Background(), model.SnippetQuery{UserID: "user-a"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", items)
	}
}

func TestList_RequiresUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), model.SnippetQuery{})
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	created := mustCreate(t, svc, "user-a", "original")

	updated, err := svc.Update(context.Background(), created.ID, "user-a", SnippetUpdate{Code: strPtr("print(2)")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Code != "print(2)" {
		t.Errorf("Code = %q, want %q", updated.Code, "print(2)")
	}
	if updated.Title != "original" {
		t.Errorf("Title = %q, want unchanged %q", updated.Title, "original")
	}
}

func TestUpdate_RejectsEmptyTitle(t *testing.T) {
	svc, _ := newTestService(t)
	created := mustCreate(t, svc, "user-a", "original")

	_, err := svc.Update(context.Background(), created.ID, "user-a", SnippetUpdate{Title: strPtr("  ")})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestUpdate_WrongOwner(t *testing.T) {
	svc, repo := newTestService(t)
	created := mustCreate(t, svc, "user-a", "owned")

	_, err := svc.Update(context.Background(), created.ID, "user-b", SnippetUpdate{Code: strPtr("evil")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if repo.snippets[created.ID].Code != "print(1)" {
		t.Error("Update() by another user changed the stored code")
	}
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService(t)
	created := mustCreate(t, svc, "user-a", "doomed")

	if err := svc.Delete(context.Background(), created.ID, "user-b"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by other user error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), created.ID, "user-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := repo.snippets[created.ID]; ok {
		t.Error("Delete() left the snippet in the store")
	}
}
