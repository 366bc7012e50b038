// Package apiclient is the JSON-over-HTTP transport shared by the remote
// collaborators of the studio: the assistant backend, the compiler, the
// usage/API-key endpoints and the hosted snippet store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// StatusError is returned for any non-2xx response. Message carries the
// backend's own "message" (or "error") field when the body has one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// BackendMessage extracts the backend-provided message from err, if any.
func BackendMessage(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message, true
	}
	return "", false
}

// StatusCode returns the HTTP status carried by err, or 0 when the request
// never produced a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client sends JSON requests relative to BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
	header  http.Header
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// New returns a client rooted at baseURL (trailing slashes are trimmed).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one call. Body, when non-nil, is JSON encoded; Out,
// when non-nil, receives the decoded JSON response.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
	Out    any
}

// Do performs r and decodes the response into r.Out.
func (c *Client) Do(ctx context.Context, r Request) error {
	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		buf, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("apiclient: encoding %s %s: %w", r.Method, r.Path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return fmt.Errorf("apiclient: building %s %s: %w", r.Method, r.Path, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if r.Out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.Out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("apiclient: decoding %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

// Get is shorthand for a GET decoding into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Out: out})
}

// Post is shorthand for a POST of body decoding into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Out: out})
}

// Delete is shorthand for a DELETE decoding into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Out: out})
}

func errorMessage(raw []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
