package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pkeller/tictactoe/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("session not found")
	ErrNotYourTurn = errors.New("not your turn")
)

// Mode selects who drives the mark opposite the human.
type Mode uint8

const (
	LocalTwoPlayer Mode = iota
	VsComputer
)

func (m Mode) String() string {
	if m == VsComputer {
		return "computer"
	}
	return "local"
}

// ParseMode maps a form value to a Mode; anything unknown is local.
func ParseMode(s string) Mode {
	if s == "computer" {
		return VsComputer
	}
	return LocalTwoPlayer
}

// Score counts finished games per session. Counters only ever grow,
// except on a full reset.
type Score struct {
	X     int
	O     int
	Draws int
}

// Session is the in-memory state tracked per browser session.
type Session struct {
	ID      string
	Game    domain.Game
	Mode    Mode
	Human   domain.Cell // mark driven by clicks in VsComputer mode
	Score   Score
	Created time.Time
	Updated time.Time
}

// StatusText derives the header line from result, mode and turn.
func StatusText(ss Session) string {
	computer := ss.Mode == VsComputer
	switch ss.Game.Result {
	case domain.XWins:
		if computer && ss.Human != domain.X {
			return "Computer wins!"
		}
		return "Player X wins!"
	case domain.OWins:
		if computer && ss.Human != domain.O {
			return "Computer wins!"
		}
		return "Player O wins!"
	case domain.Draw:
		return "Draw game!"
	}
	if computer && ss.Game.Turn != ss.Human {
		return "Computer's turn"
	}
	return "Player " + ss.Game.Turn.String() + "'s turn"
}

// session wraps the public state with scheduling bookkeeping. epoch is
// bumped on every reset; a pending AI callback compares it before
// touching the board, so a reset always wins over a stale move.
type session struct {
	Session
	epoch   int
	scored  bool
	aiTimer *time.Timer
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Options tunes a Service.
type Options struct {
	// AIDelay is the presentation pause before the computer replies.
	// Zero means the reply is scheduled immediately.
	AIDelay time.Duration
	// Render builds the broadcast payload for a session snapshot.
	Render func(Session) []byte
}

// Service manages sessions and subscribers.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	subs     map[string]map[*subscriber]struct{}
	render   func(Session) []byte
	aiDelay  time.Duration
}

// NewService creates a service.
func NewService(opts Options) *Service {
	render := opts.Render
	if render == nil {
		render = func(Session) []byte { return nil }
	}
	return &Service{
		sessions: make(map[string]*session),
		subs:     make(map[string]map[*subscriber]struct{}),
		render:   render,
		aiDelay:  opts.AIDelay,
	}
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(render func(Session) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if render == nil {
		render = func(Session) []byte { return nil }
	}
	s.render = render
}

// CreateSession creates and registers a new session in local mode.
func (s *Service) CreateSession() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss := newSession(uuid.NewString())
	s.sessions[ss.ID] = ss
	cp := ss.Session
	return &cp, nil
}

func newSession(id string) *session {
	now := time.Now()
	return &session{Session: Session{
		ID:      id,
		Game:    domain.New(),
		Human:   domain.X,
		Created: now,
		Updated: now,
	}}
}

// Get returns a copy of the session state if present.
func (s *Service) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := ss.Session
	return &cp, true
}

// Play applies a human move at cell (0..8). In vs-computer mode the
// click is rejected while the computer is to move; an accepted move
// that leaves the game open schedules the computer's reply.
func (s *Service) Play(id string, cell int) (*Session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if ss.Mode == VsComputer && !ss.Game.Over() && ss.Game.Turn != ss.Human {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := ss.Game.Play(cell); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.settleLocked(ss)
	s.scheduleAILocked(ss)
	return s.snapshotAndBroadcast(ss)
}

// SetMode switches the session mode and starts a fresh game, keeping
// the score. human picks the mark driven by clicks in vs-computer
// mode; choosing O makes the computer open the game.
func (s *Service) SetMode(id string, mode Mode, human domain.Cell) (*Session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	ss.Mode = mode
	if human == domain.X || human == domain.O {
		ss.Human = human
	}
	s.resetBoardLocked(ss)
	s.scheduleAILocked(ss)
	return s.snapshotAndBroadcast(ss)
}

// Restart starts a fresh game in the current mode; the score stays.
func (s *Service) Restart(id string) (*Session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.resetBoardLocked(ss)
	s.scheduleAILocked(ss)
	return s.snapshotAndBroadcast(ss)
}

// Reset starts a fresh game and zeroes the score.
func (s *Service) Reset(id string) (*Session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	ss.Score = Score{}
	s.resetBoardLocked(ss)
	s.scheduleAILocked(ss)
	return s.snapshotAndBroadcast(ss)
}

// resetBoardLocked recreates the board and invalidates any pending
// computer move. Caller holds s.mu.
func (s *Service) resetBoardLocked(ss *session) {
	if ss.aiTimer != nil {
		ss.aiTimer.Stop()
		ss.aiTimer = nil
	}
	ss.epoch++
	ss.Game = domain.New()
	ss.scored = false
}

// settleLocked bumps the score when the game just reached a terminal
// result. The scored flag keeps re-evaluation from double-counting.
// Caller holds s.mu.
func (s *Service) settleLocked(ss *session) {
	if !ss.Game.Over() || ss.scored {
		return
	}
	ss.scored = true
	switch ss.Game.Result {
	case domain.XWins:
		ss.Score.X++
	case domain.OWins:
		ss.Score.O++
	case domain.Draw:
		ss.Score.Draws++
	}
	logrus.Debugf("session %s finished: %s", ss.ID, StatusText(ss.Session))
}

// scheduleAILocked arms the reply timer when the computer is to move.
// Caller holds s.mu.
func (s *Service) scheduleAILocked(ss *session) {
	if ss.Mode != VsComputer || ss.Game.Over() || ss.Game.Turn == ss.Human {
		return
	}
	id, epoch := ss.ID, ss.epoch
	ss.aiTimer = time.AfterFunc(s.aiDelay, func() { s.playAI(id, epoch) })
}

// playAI applies the computer's move if the session still matches the
// epoch the timer was armed with.
func (s *Service) playAI(id string, epoch int) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok || ss.epoch != epoch {
		s.mu.Unlock()
		return
	}
	ss.aiTimer = nil
	if ss.Mode != VsComputer || ss.Game.Over() || ss.Game.Turn == ss.Human {
		s.mu.Unlock()
		return
	}
	cell := domain.SelectMove(ss.Game.Board, ss.Game.Turn)
	if cell < 0 {
		s.mu.Unlock()
		return
	}
	if err := ss.Game.Play(cell); err != nil {
		logrus.Errorf("computer move rejected: %v", err)
		s.mu.Unlock()
		return
	}
	s.settleLocked(ss)
	_, _ = s.snapshotAndBroadcast(ss)
}

// snapshotAndBroadcast copies state, renders the payload, releases the
// lock, and fans out to subscribers. Caller holds s.mu; the lock is
// released on return.
func (s *Service) snapshotAndBroadcast(ss *session) (*Session, error) {
	ss.Updated = time.Now()
	cp := ss.Session
	subs := s.copySubsLocked(ss.ID)
	payload := s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	var toDrop []*subscriber
	for sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[cp.ID]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
	return &cp, nil
}

// Subscribe registers a subscriber for a session. Returns a channel and
// an unsubscribe func. The session is created lazily so a live stream
// can attach before the first event.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = newSession(id)
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
