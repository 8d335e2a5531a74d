package domain

import "errors"

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Other returns the opposing mark. Empty maps to itself.
func (c Cell) Other() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Board is a fixed 3x3 board stored row-major, cells indexed 0..8.
type Board [9]Cell

// lines are the 8 winning triples: rows, then columns, then diagonals.
// Evaluate scans them in this order.
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Result is the outcome of a game.
type Result uint8

const (
	InProgress Result = iota
	XWins
	OWins
	Draw
)

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board  Board
	Turn   Cell
	Result Result
	Line   []int // winning line indices; nil unless Result is XWins or OWins
	Moves  int
}

// Errors returned by domain operations.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrGameOver    = errors.New("game over")
)

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X}
}

// Over reports whether the game reached a terminal result.
func (g *Game) Over() bool { return g.Result != InProgress }

// Play attempts to place the current turn's mark at cell idx (0..8).
// The turn flips only on an accepted move that leaves the game open.
func (g *Game) Play(idx int) error {
	if g.Over() {
		return ErrGameOver
	}
	if idx < 0 || idx > 8 {
		return ErrOutOfBounds
	}
	if g.Board[idx] != Empty {
		return ErrOccupied
	}

	g.Board[idx] = g.Turn
	g.Moves++

	res, line := Evaluate(g.Board)
	if res != InProgress {
		g.Result = res
		g.Line = line
		return nil
	}

	g.Turn = g.Turn.Other()
	return nil
}

// Evaluate scans the 8 candidate lines and reports the outcome. Only
// one mark can have completed a line in a legal game, so the first
// match wins. A full board with no line is a draw with no highlight.
func Evaluate(b Board) (Result, []int) {
	for _, ln := range lines {
		m := b[ln[0]]
		if m != Empty && m == b[ln[1]] && m == b[ln[2]] {
			line := []int{ln[0], ln[1], ln[2]}
			if m == X {
				return XWins, line
			}
			return OWins, line
		}
	}
	for _, c := range b {
		if c == Empty {
			return InProgress, nil
		}
	}
	return Draw, nil
}
