package bot

import (
	"slices"

	"connect4engine/internal/models"
)

const (
	centerPenalty     = 10
	immediateWinBonus = 1_000_000
)

// OrderedMoves returns the legal columns best-first for the player to move:
// perspective on maximizing nodes, its opponent otherwise. Columns closer to
// the centre come first and immediate wins jump ahead of everything; ties keep
// ascending column order.
func OrderedMoves(b *models.Board, perspective models.Cell, maximizing bool) []int {
	valid := b.ValidColumns()
	mover := perspective
	if !maximizing {
		mover = perspective.Opponent()
	}

	center := b.Center()
	keys := make([]int, b.Cols())
	for _, col := range valid {
		key := -centerPenalty * abs(col-center)
		if winsImmediately(b, col, mover) {
			key += immediateWinBonus
		}
		keys[col] = key
	}
	slices.SortStableFunc(valid, func(x, y int) int {
		return keys[y] - keys[x]
	})
	return valid
}

// WinningMove reports a column where p wins at once, preferring the one
// closest to the centre.
func WinningMove(b *models.Board, p models.Cell) (int, bool) {
	ordered := OrderedMoves(b, p, true)
	if len(ordered) > 0 && winsImmediately(b, ordered[0], p) {
		return ordered[0], true
	}
	return -1, false
}

func winsImmediately(b *models.Board, col int, p models.Cell) bool {
	row, err := b.Drop(col, p)
	if err != nil {
		return false
	}
	defer b.Remove(row, col)
	// Same answer as a full scan here: search never orders moves on a board
	// that already holds a line.
	_, won := b.LocalWin(row, col)
	return won
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
