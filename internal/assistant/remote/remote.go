// Package remote implements assistant.Service against the hosted backend
// endpoints (/explain, /autocomplete, /inline-completion,
// /chat-code-modification). The backend tracks usage per userId.
package remote

import (
	"context"
	"fmt"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/assistant"
)

var _ assistant.Service = (*Client)(nil)

// Client calls the assistant backend.
type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Explain(ctx context.Context, req assistant.ExplainRequest) (string, error) {
	var resp struct {
		Explanation string `json:"explanation"`
	}
	if err := c.api.Post(ctx, "/explain", req, &resp); err != nil {
		return "", fmt.Errorf("explaining code: %w", err)
	}
	return resp.Explanation, nil
}

func (c *Client) Suggest(ctx context.Context, req assistant.SuggestRequest) (string, error) {
	var resp struct {
		Suggestion string `json:"suggestion"`
	}
	if err := c.api.Post(ctx, "/autocomplete", req, &resp); err != nil {
		return "", fmt.Errorf("requesting suggestion: %w", err)
	}
	return resp.Suggestion, nil
}

func (c *Client) InlineComplete(ctx context.Context, req assistant.InlineRequest) (string, error) {
	var resp struct {
		Completion string `json:"completion"`
	}
	if err := c.api.Post(ctx, "/inline-completion", req, &resp); err != nil {
		return "", fmt.Errorf("requesting inline completion: %w", err)
	}
	return resp.Completion, nil
}

func (c *Client) ModifyCode(ctx context.Context, req assistant.ModifyRequest) (*assistant.Modification, error) {
	var resp assistant.Modification
	if err := c.api.Post(ctx, "/chat-code-modification", req, &resp); err != nil {
		return nil, fmt.Errorf("modifying code: %w", err)
	}
	return &resp, nil
}
