package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/model"
)

// fakeUserRepo is an in-memory repository.UserRepository keyed by both
// internal ID and GitHub ID, mirroring the store's upsert.
type fakeUserRepo struct {
	users     map[string]*model.User
	byGHID    map[int64]*model.User
	nextID    int
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Name = user.Name
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byGHID[user.GitHubID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(repo, ts, logger)
}

func TestLoginGitHub_NewUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	result, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Name:      " Mona Lisa ",
		Email:     "octocat@github.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}
	if result.User.ID == "" || result.Token == "" {
		t.Fatalf("LoginGitHub() = %+v, want ID and token set", result)
	}
	if result.User.Name != "Mona Lisa" {
		t.Errorf("User.Name = %q, want trimmed %q", result.User.Name, "Mona Lisa")
	}

	subject, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if subject != result.User.ID {
		t.Errorf("token subject = %q, want %q", subject, result.User.ID)
	}
}

func TestLoginGitHub_ReturningUserKeepsID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	first, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "old-login"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}
	second, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "new-login"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("ID changed from %q to %q", first.User.ID, second.User.ID)
	}
	if second.User.Login != "new-login" {
		t.Errorf("Login = %q, want new-login", second.User.Login)
	}
}

func TestLoginGitHub_Errors(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	if _, err := svc.LoginGitHub(context.Background(), nil); err == nil {
		t.Error("LoginGitHub(nil) should return an error")
	}

	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("database is on fire")
	svc = newTestAuthService(t, repo)
	if _, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "u"}); err == nil {
		t.Error("LoginGitHub() should propagate repository errors")
	}
}

func TestGetUserByID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	result, _ := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "findme"})

	user, err := svc.GetUserByID(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Login != "findme" {
		t.Errorf("Login = %q, want findme", user.Login)
	}

	if _, err := svc.GetUserByID(context.Background(), ""); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("GetUserByID(\"\") error = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.GetUserByID(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.ValidateToken("this.is.garbage"); err == nil {
		t.Fatal("ValidateToken() should return error for garbage token")
	}
}
