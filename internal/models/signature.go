package models

import (
	"strconv"
	"strings"
)

// Signature lists the played columns, 1-based. Boards up to nine columns use
// one digit per move ("4453"); wider boards separate moves with commas.
func Signature(moves []Move, cols int) string {
	cs := make([]int, len(moves))
	for i, m := range moves {
		cs[i] = m.Col
	}
	return formatColumns(cs, cols)
}

// CanonicalSignature is the smaller of the signature and its left-right mirror,
// so mirrored games share one record.
func CanonicalSignature(moves []Move, cols int) string {
	sig := Signature(moves, cols)
	mirrored := make([]int, len(moves))
	for i, m := range moves {
		mirrored[i] = cols - 1 - m.Col
	}
	msig := formatColumns(mirrored, cols)
	if msig < sig {
		return msig
	}
	return sig
}

func formatColumns(cs []int, cols int) string {
	var sb strings.Builder
	for i, c := range cs {
		if cols > 9 && i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(c + 1))
	}
	return sb.String()
}

// ParseSignature turns a signature back into 0-based columns.
func ParseSignature(sig string, cols int) ([]int, error) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return nil, nil
	}
	var parts []string
	if strings.Contains(sig, ",") {
		parts = strings.Split(sig, ",")
	} else {
		parts = strings.Split(sig, "")
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > cols {
			return nil, ErrInvalidColumn
		}
		out = append(out, n-1)
	}
	return out, nil
}

// Replay drops the columns alternately starting with first and returns the
// resulting board, the applied moves and the player to move next. Replay
// stops with an error at the first illegal column or after a winning move
// followed by further moves.
func Replay(rows, cols int, first Cell, columns []int) (*Board, []Move, Cell, error) {
	if !first.IsPlayer() {
		return nil, nil, Empty, ErrInvalidPlayer
	}
	b, err := NewBoard(rows, cols)
	if err != nil {
		return nil, nil, Empty, err
	}
	moves := make([]Move, 0, len(columns))
	p := first
	for i, col := range columns {
		row, err := b.Drop(col, p)
		if err != nil {
			return nil, nil, Empty, err
		}
		moves = append(moves, Move{Row: row, Col: col, Player: p})
		if _, won := b.LocalWin(row, col); won && i != len(columns)-1 {
			return nil, nil, Empty, ErrGameOver
		}
		p = p.Opponent()
	}
	return b, moves, p, nil
}
