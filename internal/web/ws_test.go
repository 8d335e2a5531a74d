package web

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/pkeller/tictactoe/internal/app"
)

func TestWebSocketStreamsBoardFragments(t *testing.T) {
	svc := app.NewService(app.Options{})
	srv := httptest.NewServer(NewServer(svc))
	defer srv.Close()

	ss, err := svc.CreateSession()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + ss.ID + "/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer c.CloseNow()

	// Give the handler a beat to register its subscription.
	time.Sleep(100 * time.Millisecond)
	_, err = svc.Play(ss.ID, 0)
	require.NoError(t, err)

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	body := string(data)
	require.Contains(t, body, `id="board"`)
	require.Contains(t, body, ">X</button>")
}

func TestWebSocketSubscriptionEndsWithClient(t *testing.T) {
	svc := app.NewService(app.Options{})
	srv := httptest.NewServer(NewServer(svc))
	defer srv.Close()

	ss, err := svc.CreateSession()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + ss.ID + "/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))

	// Broadcasting after the client left must not wedge the service.
	_, err = svc.Play(ss.ID, 0)
	require.NoError(t, err)
	_, err = svc.Play(ss.ID, 1)
	require.NoError(t, err)
}
