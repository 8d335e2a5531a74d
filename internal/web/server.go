package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/pkeller/tictactoe/internal/app"
)

// NewServer wires routes and returns an http.Handler. Live streams
// (SSE and websocket) broadcast the same board fragment the handlers
// return, so the service renderer is pointed at the board template.
func NewServer(s *app.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	h := &handlers{svc: s, tpl: loadTemplates()}
	s.SetRenderer(func(ss app.Session) []byte { return h.renderBoard(ss, "") })
	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/cell", h.cell)
		r.Post("/mode", h.mode)
		r.Post("/restart", h.restart)
		r.Post("/reset", h.reset)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
