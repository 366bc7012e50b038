package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/studio"
)

// UserLookup resolves the signed-in user's profile.
// *service.AuthService satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Sessions maps a request to its studio coordinator.
//
// SESSION KEYS:
// Coordinators are keyed by the browser's sid cookie (auth.SessionKey),
// so the buffer and theme belong to the browser. Who is signed in is
// attached separately: when the request's user differs from the
// coordinator's, the profile is loaded and swapped in.
type Sessions struct {
	manager *studio.Manager
	users   UserLookup
}

func NewSessions(manager *studio.Manager, users UserLookup) *Sessions {
	return &Sessions{manager: manager, users: users}
}

// Coordinator returns the request's coordinator, creating it on first use.
func (s *Sessions) Coordinator(r *http.Request) (*studio.Coordinator, error) {
	ctx := r.Context()
	key := auth.SessionKey(ctx)
	if key == "" {
		return nil, apperror.Unauthenticated("no studio session")
	}
	userID, _ := auth.UserIDFromContext(ctx)
	if c, ok := s.manager.Lookup(key); ok && c.UserID() == userID {
		return c, nil
	}

	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := s.manager.Get(ctx, key, user)
	c.SetUser(user)
	return c, nil
}

func (s *Sessions) lookupUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	if s.users == nil {
		return &model.User{ID: id}, nil
	}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("the signed-in user no longer exists")
		}
		return nil, err
	}
	return u, nil
}

// SignOut detaches the user from the request's studio, if one is live.
// The browser keeps its buffer and theme.
func (s *Sessions) SignOut(r *http.Request) {
	if c, ok := s.manager.Lookup(auth.SessionKey(r.Context())); ok {
		c.SetUser(nil)
	}
}
