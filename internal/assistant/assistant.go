// Package assistant defines the AI capability the studio depends on.
//
// The coordinator never talks to a model directly: it calls a Service,
// which may be the hosted backend (package remote) or a direct Gemini
// provider (package gemini). Both honor the same contract: a non-nil error
// means the request failed and no partial result is usable.
package assistant

import (
	"context"

	"github.com/sakif/code-studio/internal/model"
)

// Service is the AssistantService capability.
type Service interface {
	// Explain returns a plain-language explanation of code.
	Explain(ctx context.Context, req ExplainRequest) (string, error)
	// Suggest returns one improved version of code.
	Suggest(ctx context.Context, req SuggestRequest) (string, error)
	// InlineComplete returns the text to insert at the cursor. An empty
	// string means "no suggestion".
	InlineComplete(ctx context.Context, req InlineRequest) (string, error)
	// ModifyCode applies a natural-language instruction to the whole buffer.
	ModifyCode(ctx context.Context, req ModifyRequest) (*Modification, error)
}

type ExplainRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId,omitempty"`
}

type SuggestRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId,omitempty"`
}

type InlineRequest struct {
	Code           string         `json:"code"`
	Position       model.Position `json:"position"`
	Language       string         `json:"language"`
	UserID         string         `json:"userId,omitempty"`
	LineContent    string         `json:"lineContent"`
	WordAtPosition string         `json:"wordAtPosition"`
}

type ModifyRequest struct {
	Message     string `json:"message"`
	CurrentCode string `json:"currentCode"`
	Language    string `json:"language"`
	UserID      string `json:"userId,omitempty"`
}

// Modification is the outcome of ModifyCode. When Unchanged is set the
// caller must leave the buffer alone and may show Message instead.
type Modification struct {
	ModifiedCode string `json:"modifiedCode"`
	Unchanged    bool   `json:"unchanged"`
	Message      string `json:"message,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
}
