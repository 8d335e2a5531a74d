package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkeller/tictactoe/internal/app"
	"github.com/pkeller/tictactoe/internal/domain"
)

type handlers struct {
	svc *app.Service
	tpl *templates
}

type boardView struct {
	ID     string
	Board  domain.Board
	Line   []int
	Status string
	Score  app.Score
	Error  string
}

func (h *handlers) renderBoard(ss app.Session, errMsg string) []byte {
	data := boardView{
		ID:     ss.ID,
		Board:  ss.Game.Board,
		Line:   ss.Game.Line,
		Status: app.StatusText(ss),
		Score:  ss.Score,
		Error:  errMsg,
	}
	return renderTemplate(h.tpl.board, "", data)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "base", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	ss, err := h.svc.CreateSession()
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+ss.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ss, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID        string
		Mode      string
		Human     string
		BoardHTML template.HTML
	}{
		ID:        ss.ID,
		Mode:      ss.Mode.String(),
		Human:     ss.Human.String(),
		BoardHTML: template.HTML(h.renderBoard(*ss, "")),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "base", data))
}

// cell applies a clicked move. Rejections keep the board unchanged and
// re-render it with an inline message.
func (h *handlers) cell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	cell, _ := strconv.Atoi(r.Form.Get("cell"))
	ss, err := h.svc.Play(id, cell)
	var errMsg string
	if err != nil {
		if ss == nil {
			if cur, ok := h.svc.Get(id); ok {
				ss = cur
			}
		}
		switch {
		case errors.Is(err, app.ErrNotYourTurn):
			errMsg = "Computer's turn"
		case errors.Is(err, domain.ErrOccupied):
			errMsg = "Cell is occupied"
		case errors.Is(err, domain.ErrOutOfBounds):
			errMsg = "Out of bounds"
		case errors.Is(err, domain.ErrGameOver):
			errMsg = "Game is over"
		default:
			errMsg = "Invalid move"
		}
	}
	if ss == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*ss, errMsg))
}

func parseMark(s string) domain.Cell {
	switch s {
	case "X":
		return domain.X
	case "O":
		return domain.O
	default:
		return domain.Empty
	}
}

func (h *handlers) mode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	mode := app.ParseMode(r.Form.Get("mode"))
	human := parseMark(r.Form.Get("as"))
	ss, err := h.svc.SetMode(id, mode, human)
	if err != nil || ss == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*ss, ""))
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ss, err := h.svc.Restart(id)
	if err != nil || ss == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*ss, ""))
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ss, err := h.svc.Reset(id)
	if err != nil || ss == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*ss, ""))
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, _ := h.svc.Subscribe(ctx, id)
	// heartbeat ticker
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			// Emit board event
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}
