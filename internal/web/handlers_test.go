package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pkeller/tictactoe/internal/app"
	"github.com/pkeller/tictactoe/internal/domain"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService(app.Options{})
	h := NewServer(s)
	return s, h
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
}

func TestGamePageShowsBoardAndControls(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(ss.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "id=\"board\"") {
		t.Fatalf("expected embedded board; got body: %q", body)
	}
	for _, path := range []string{"/mode", "/restart", "/reset"} {
		if !strings.Contains(body, "/game/"+ss.ID+path) {
			t.Fatalf("expected %s control wiring; got body: %q", path, body)
		}
	}
	// SSE wiring present
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+ss.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
}

func TestCellEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()

	rr := postForm(t, h, "/game/"+ss.ID+"/cell", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(ss.ID)
	if latest.Game.Board[4] != domain.X || latest.Game.Moves != 1 {
		t.Fatalf("expected move applied, board=%v", latest.Game.Board)
	}
}

func TestCellEndpointRejectionKeepsState(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()
	svc.Play(ss.ID, 4)

	rr := postForm(t, h, "/game/"+ss.ID+"/cell", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with inline message, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Cell is occupied") {
		t.Fatalf("expected occupied message, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(ss.ID)
	if latest.Game.Moves != 1 {
		t.Fatalf("rejected click must not move, moves=%d", latest.Game.Moves)
	}
}

func TestModeEndpointSwitchesAndKeepsScore(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()
	// X wins top row, score X=1
	for _, cell := range []int{0, 3, 1, 4, 2} {
		if _, err := svc.Play(ss.ID, cell); err != nil {
			t.Fatalf("move failed: %v", err)
		}
	}

	rr := postForm(t, h, "/game/"+ss.ID+"/mode", url.Values{"mode": {"computer"}, "as": {"X"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	latest, _ := svc.Get(ss.ID)
	if latest.Mode != app.VsComputer {
		t.Fatalf("expected computer mode, got %v", latest.Mode)
	}
	if latest.Game.Moves != 0 || latest.Game.Result != domain.InProgress {
		t.Fatalf("mode change must clear the game: %+v", latest.Game)
	}
	if latest.Score.X != 1 {
		t.Fatalf("mode change must keep the score, got %+v", latest.Score)
	}
}

func TestResetEndpointZeroesScore(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()
	for _, cell := range []int{0, 3, 1, 4, 2} {
		svc.Play(ss.ID, cell)
	}

	rr := postForm(t, h, "/game/"+ss.ID+"/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	latest, _ := svc.Get(ss.ID)
	if latest.Score != (app.Score{}) {
		t.Fatalf("expected zeroed score, got %+v", latest.Score)
	}
}

func TestWinningLineHighlighted(t *testing.T) {
	svc, h := newTestServer(t)
	ss, _ := svc.CreateSession()
	for _, cell := range []int{0, 3, 1, 4} {
		svc.Play(ss.ID, cell)
	}

	rr := postForm(t, h, "/game/"+ss.ID+"/cell", url.Values{"cell": {"2"}})
	body := rr.Body.String()
	if !strings.Contains(body, "cell win") {
		t.Fatalf("expected highlighted cells, got %q", body)
	}
	if !strings.Contains(body, "Player X wins!") {
		t.Fatalf("expected win status, got %q", body)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	// create a session via POST
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	// Request SSE
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}
