// Package account is the client for the per-user assistant account
// endpoints: usage statistics (/api/gemini-usage/*) and the user's own
// assistant API key (/api/user-api-key/*).
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
)

// Defaults used by the settings screen.
const (
	DefaultStatsDays     = 30
	DefaultActivityLimit = 50
)

// Number accepts JSON numbers and numeric strings; aggregate columns come
// back from the usage database as either.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("account: parsing number %q: %w", raw, err)
	}
	*n = Number(f)
	return nil
}

// Summary aggregates a user's assistant usage over a window.
type Summary struct {
	TotalRequests      Number `json:"totalRequests"`
	SuccessfulRequests Number `json:"successfulRequests"`
	FailedRequests     Number `json:"failedRequests"`
	TotalTokens        Number `json:"totalTokens"`
	SuccessRate        Number `json:"successRate"`
	AvgExecutionTime   Number `json:"avgExecutionTime"`
}

// DailyUsage is one day of usage, newest first in API responses.
type DailyUsage struct {
	Date               string `json:"date"`
	TotalRequests      Number `json:"total_requests"`
	SuccessfulRequests Number `json:"successful_requests"`
	FailedRequests     Number `json:"failed_requests"`
	TotalTokens        Number `json:"total_tokens"`
	AvgExecutionTime   Number `json:"avg_execution_time"`
}

// EndpointUsage counts requests per assistant feature, most used first.
type EndpointUsage struct {
	Endpoint      string `json:"endpoint"`
	TotalRequests Number `json:"total_requests"`
}

// Stats is the payload of the stats and range endpoints.
type Stats struct {
	Summary       *Summary        `json:"summary"`
	DailyUsage    []DailyUsage    `json:"dailyUsage"`
	EndpointUsage []EndpointUsage `json:"endpointUsage"`
}

// Activity is one recorded assistant call.
type Activity struct {
	ID            string `json:"id"`
	Endpoint      string `json:"endpoint"`
	Success       bool   `json:"success"`
	TokensUsed    Number `json:"tokens_used"`
	ExecutionTime Number `json:"execution_time"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e envelope[T]) check(op string) error {
	if !e.Success {
		msg := e.Message
		if msg == "" {
			msg = op + " failed"
		}
		return apperror.Upstream("usage", fmt.Errorf("%s: %s", op, msg))
	}
	return nil
}

// Client talks to the account endpoints of the assistant backend.
type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Stats returns usage over the last days days.
func (c *Client) Stats(ctx context.Context, userID string, days int) (*Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	var env envelope[Stats]
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.api.Get(ctx, "/api/gemini-usage/stats/"+url.PathEscape(userID), q, &env); err != nil {
		return nil, fmt.Errorf("account: fetching usage stats: %w", err)
	}
	if err := env.check("usage stats"); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Activity returns the most recent assistant calls.
func (c *Client) Activity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	var env envelope[[]Activity]
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.api.Get(ctx, "/api/gemini-usage/activity/"+url.PathEscape(userID), q, &env); err != nil {
		return nil, fmt.Errorf("account: fetching usage activity: %w", err)
	}
	if err := env.check("usage activity"); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []Activity{}
	}
	return env.Data, nil
}

// Range returns usage between two YYYY-MM-DD dates, inclusive.
func (c *Client) Range(ctx context.Context, userID, startDate, endDate string) (*Stats, error) {
	var env envelope[Stats]
	q := url.Values{"startDate": {startDate}, "endDate": {endDate}}
	if err := c.api.Get(ctx, "/api/gemini-usage/range/"+url.PathEscape(userID), q, &env); err != nil {
		return nil, fmt.Errorf("account: fetching usage range: %w", err)
	}
	if err := env.check("usage range"); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Dashboard returns the backend's dashboard summary untouched.
func (c *Client) Dashboard(ctx context.Context, userID string) (json.RawMessage, error) {
	var env envelope[json.RawMessage]
	if err := c.api.Get(ctx, "/api/gemini-usage/dashboard/"+url.PathEscape(userID), nil, &env); err != nil {
		return nil, fmt.Errorf("account: fetching dashboard: %w", err)
	}
	if err := env.check("dashboard"); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// KeyStatus reports whether userID has stored their own key.
func (c *Client) KeyStatus(ctx context.Context, userID string) (*model.APIKeyStatus, error) {
	var status model.APIKeyStatus
	if err := c.api.Get(ctx, "/api/user-api-key/status/"+url.PathEscape(userID), nil, &status); err != nil {
		return nil, fmt.Errorf("account: fetching api key status: %w", err)
	}
	return &status, nil
}

// SaveKey stores apiKey for userID. The key is sent with whitespace removed.
func (c *Client) SaveKey(ctx context.Context, userID, apiKey string) error {
	body := map[string]string{"userId": userID, "apiKey": stripSpace(apiKey)}
	if err := c.api.Post(ctx, "/api/user-api-key/save", body, nil); err != nil {
		return fmt.Errorf("account: saving api key: %w", err)
	}
	return nil
}

// DeleteKey removes userID's stored key, reverting to the shared key.
func (c *Client) DeleteKey(ctx context.Context, userID string) error {
	if err := c.api.Delete(ctx, "/api/user-api-key/delete/"+url.PathEscape(userID), nil); err != nil {
		return fmt.Errorf("account: deleting api key: %w", err)
	}
	return nil
}
