package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

var wsWriteTimeout = 5 * time.Second

// ws streams rendered board fragments over a websocket, mirroring the
// SSE endpoint for clients that prefer a socket (htmx ws extension).
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		logrus.Debugf("websocket accept failed: %v", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusNormalClosure, "")
			return
		case b, ok := <-ch:
			if !ok {
				_ = c.Close(websocket.StatusNormalClosure, "")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := c.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
