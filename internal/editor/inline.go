package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/model"
)

// DefaultDebounce is the quiet period before a completion request is sent.
const DefaultDebounce = 300 * time.Millisecond

// Suggestion is ghost text anchored at a cursor position.
type Suggestion struct {
	Text       string         `json:"text"`
	Position   model.Position `json:"position"`
	Generation uint64         `json:"generation"`
}

// InlineCompleter debounces completion requests and keeps at most one
// suggestion. Every request, accept or dismiss bumps a generation counter;
// an in-flight request whose generation is no longer current is cancelled
// and its result dropped.
type InlineCompleter struct {
	svc      assistant.Service
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *Suggestion
}

func NewInlineCompleter(svc assistant.Service, debounce time.Duration, logger *slog.Logger) *InlineCompleter {
	return &InlineCompleter{svc: svc, debounce: debounce, logger: logger}
}

// Request waits out the debounce period, then asks the assistant for a
// completion at req.Position. It returns nil when superseded, when the
// assistant has nothing to offer, or when the assistant fails; completion
// failures never surface to the user.
func (c *InlineCompleter) Request(ctx context.Context, req assistant.InlineRequest) *Suggestion {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.current = nil
	c.mu.Unlock()

	if err := sleepCtx(ctx, c.debounce); err != nil {
		return nil
	}

	text, err := c.svc.InlineComplete(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("inline completion failed", slog.String("error", err.Error()))
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || text == "" {
		return nil
	}
	c.current = &Suggestion{Text: text, Position: req.Position, Generation: gen}
	return c.current
}

// Current returns the visible suggestion, if any.
func (c *InlineCompleter) Current() *Suggestion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Accept inserts the visible suggestion into code at its anchor and clears
// it. ok is false when there was nothing to accept.
func (c *InlineCompleter) Accept(code string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return code, false
	}
	out := InsertAt(code, c.current.Position, c.current.Text)
	c.resetLocked()
	return out, true
}

// Dismiss drops the visible suggestion and any request in flight.
func (c *InlineCompleter) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Close releases the completer; it is equivalent to Dismiss.
func (c *InlineCompleter) Close() {
	c.Dismiss()
}

func (c *InlineCompleter) resetLocked() {
	c.gen++
	c.current = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
