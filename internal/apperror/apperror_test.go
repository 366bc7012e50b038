package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("snippet", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("snippet", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("sign in first"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "PreconditionFailed wraps ErrPrecondition",
			err:       PreconditionFailed("buffer is empty"),
			target:    ErrPrecondition,
			wantMatch: true,
		},
		{
			name:      "Upstream wraps ErrUpstream",
			err:       Upstream("assistant", errors.New("connection refused")),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("snippet", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped ValidationFailed still matches",
			err:       fmt.Errorf("creating snippet: %w", ValidationFailed("title", "too long")),
			target:    ErrValidation,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound", NotFound("snippet", "abc123"), "snippet not found with id abc123"},
		{"ValidationFailed", ValidationFailed("title", "title is required"), "title is required"},
		{"Conflict", Conflict("snippet", "abc123"), "snippet conflict with id abc123"},
		{"Upstream", Upstream("compiler", errors.New("EOF")), "compiler request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Upstream("assistant", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("language", "unsupported language")

	if err.Field != "language" {
		t.Errorf("Field = %q, want %q", err.Field, "language")
	}
}
