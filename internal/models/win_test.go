package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(cells ...[2]int) Line {
	var l Line
	for i, c := range cells {
		l[i] = Position{Row: c[0], Col: c[1]}
	}
	return l
}

func TestLocalWinPicksEarliestWindowContainingPiece(t *testing.T) {
	b, err := NewBoard(6, 7)
	require.NoError(t, err)
	for c := 0; c < 5; c++ {
		require.NoError(t, b.Place(5, c, Red))
	}

	tests := []struct {
		col  int
		want Line
	}{
		{0, line([2]int{5, 0}, [2]int{5, 1}, [2]int{5, 2}, [2]int{5, 3})},
		{2, line([2]int{5, 0}, [2]int{5, 1}, [2]int{5, 2}, [2]int{5, 3})},
		{3, line([2]int{5, 0}, [2]int{5, 1}, [2]int{5, 2}, [2]int{5, 3})},
		{4, line([2]int{5, 1}, [2]int{5, 2}, [2]int{5, 3}, [2]int{5, 4})},
	}
	for _, tt := range tests {
		got, ok := b.LocalWin(5, tt.col)
		require.True(t, ok, "col %d", tt.col)
		assert.Equal(t, tt.want, got, "col %d", tt.col)
	}
}

func TestLocalWinDirections(t *testing.T) {
	b, err := NewBoard(6, 7)
	require.NoError(t, err)
	// Vertical in column 6.
	for r := 2; r < 6; r++ {
		require.NoError(t, b.Place(r, 6, Yellow))
	}
	got, ok := b.LocalWin(2, 6)
	require.True(t, ok)
	assert.Equal(t, line([2]int{2, 6}, [2]int{3, 6}, [2]int{4, 6}, [2]int{5, 6}), got)

	// Rising diagonal from (5,0) to (2,3), pieces below supplied by Yellow.
	d, err := NewBoard(6, 7)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for r := 5; r > 5-i; r-- {
			require.NoError(t, d.Place(r, i, Yellow))
		}
		require.NoError(t, d.Place(5-i, i, Red))
	}
	got, ok = d.LocalWin(3, 2)
	require.True(t, ok)
	assert.Equal(t, line([2]int{2, 3}, [2]int{3, 2}, [2]int{4, 1}, [2]int{5, 0}), got)
	assert.Equal(t, Red, d.Winner())

	_, ok = d.LocalWin(5, 1)
	assert.False(t, ok, "yellow piece under the diagonal is not part of a line")
	_, ok = d.LocalWin(0, 0)
	assert.False(t, ok, "empty cell never wins")
	_, ok = d.LocalWin(-1, 9)
	assert.False(t, ok)
}

func TestWinnerNoLine(t *testing.T) {
	b, err := NewBoard(6, 7)
	require.NoError(t, err)
	assert.Equal(t, Empty, b.Winner())
	for c := 0; c < 3; c++ {
		require.NoError(t, b.Place(5, c, Red))
	}
	assert.Equal(t, Empty, b.Winner())
	_, ok := b.WinningLine()
	assert.False(t, ok)
}

func TestWinnerFirstFoundInScanOrder(t *testing.T) {
	// Two lines at once, only reachable by replaying external moves: the
	// row-major scan meets Yellow's top-row line first.
	grid := [][]Cell{
		{Yellow, Yellow, Yellow, Yellow},
		{Red, Red, Red, Red},
		{Yellow, Red, Yellow, Red},
		{Red, Yellow, Red, Yellow},
	}
	b, err := FromGrid(grid)
	require.NoError(t, err)
	assert.Equal(t, Yellow, b.Winner())
}

func TestLocalAndGlobalWinAgreeUnderSelfPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for game := 0; game < 300; game++ {
		rows, cols := 4+rng.Intn(4), 4+rng.Intn(5)
		b, err := NewBoard(rows, cols)
		require.NoError(t, err)
		p := Red
		for !b.IsFull() {
			valid := b.ValidColumns()
			col := valid[rng.Intn(len(valid))]
			row, err := b.Drop(col, p)
			require.NoError(t, err)

			if l, ok := b.LocalWin(row, col); ok {
				require.Equal(t, p, b.Winner(), "game %d\n%s", game, b)
				for _, pos := range l {
					require.Equal(t, p, b.At(pos.Row, pos.Col))
				}
				break
			}
			require.Equal(t, Empty, b.Winner(), "game %d\n%s", game, b)
			p = p.Opponent()
		}
	}
}
