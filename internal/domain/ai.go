package domain

import "math/rand/v2"

// SelectMove picks a cell for mark using a one-ply heuristic: win if
// possible, block the opponent's win, take the center, otherwise a
// uniformly random empty cell. Returns -1 on a full board.
func SelectMove(b Board, mark Cell) int {
	// 1. Win: complete an own line
	if idx := winningMove(b, mark); idx >= 0 {
		return idx
	}
	// 2. Block: deny the opponent's line
	if idx := winningMove(b, mark.Other()); idx >= 0 {
		return idx
	}
	// 3. Center
	if b[4] == Empty {
		return 4
	}
	// 4. Random among remaining empty cells
	var open []int
	for i, c := range b {
		if c == Empty {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return -1
	}
	return open[rand.IntN(len(open))]
}

// winningMove returns the empty cell that would complete a line for
// mark, or -1 if no line has exactly two of mark and one empty cell.
func winningMove(b Board, mark Cell) int {
	for _, ln := range lines {
		count, empty := 0, -1
		for _, i := range ln {
			switch b[i] {
			case mark:
				count++
			case Empty:
				empty = i
			}
		}
		if count == 2 && empty >= 0 {
			return empty
		}
	}
	return -1
}
