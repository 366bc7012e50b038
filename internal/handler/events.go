package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sakif/code-studio/internal/studio"
)

const eventWriteTimeout = 10 * time.Second

// EventsHandler streams a session's events over a WebSocket.
//
// The first message is always a full state event, followed by every
// state, frame and notification event the coordinator publishes. The
// stream is one-way; messages from the client are ignored.
type EventsHandler struct {
	sessions *Sessions
	// originPatterns are host patterns accepted in the Origin header.
	originPatterns []string
	logger         *slog.Logger
}

func NewEventsHandler(sessions *Sessions, originPatterns []string, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{sessions: sessions, originPatterns: originPatterns, logger: logger}
}

// ServeHTTP upgrades the request and streams events until either side
// goes away.
//
// HTTP: GET /api/studio/events (WebSocket)
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Coordinator(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("failed to accept event stream", slog.String("error", err.Error()))
		return
	}
	// A no-op once a close handshake has already run.
	defer func() { _ = conn.CloseNow() }()

	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())

	snap := c.Snapshot()
	if err := h.write(ctx, conn, studio.Event{Type: studio.EventState, State: &snap}); err != nil {
		return
	}

	h.logger.Debug("event stream opened", slog.String("session", c.Key()))
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("event stream closed by client", slog.String("session", c.Key()))
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, ev studio.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, ev); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			h.logger.Warn("event stream write failed", slog.String("error", err.Error()))
		}
		return err
	}
	return nil
}
