package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/auth"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/handler"
	"github.com/sakif/code-studio/internal/studio"
)

func TestEventsHandler_StreamsStateFramesAndGoingAway(t *testing.T) {
	env := newTestEnvWith(t, func(opts *studio.Options) {
		opts.ChatPace = editor.Pace{Base: 2 * time.Millisecond}
	})
	env.ai.mod = &assistant.Modification{
		ModifiedCode: strings.Repeat("console.log('typed');\n", 20),
	}

	r := chi.NewRouter()
	r.Use(withTestUser)
	r.Use(auth.Session(nil, false))
	r.Handle("/api/studio/events", handler.NewEventsHandler(env.sessions, []string{"*"}, discardLogger()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := t.Context()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/studio/events"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Cookie": {auth.SessionCookie + "=" + anonSID}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	var first studio.Event
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	require.Equal(t, studio.EventState, first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, editor.DefaultLanguage, first.State.Language)

	c, ok := env.manager.Lookup(browserKey(anonSID))
	require.True(t, ok)
	require.NoError(t, c.ChatSubmit(ctx, "add a log line"))

	for {
		var ev studio.Event
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		if ev.Type == studio.EventFrame {
			require.NotNil(t, ev.Frame)
			assert.True(t, strings.HasPrefix(env.ai.mod.ModifiedCode, *ev.Frame), "frame %q", *ev.Frame)
			break
		}
	}

	env.manager.Close()

	for {
		var ev studio.Event
		err := wsjson.Read(ctx, conn, &ev)
		if err != nil {
			assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err), err.Error())
			break
		}
	}
}
