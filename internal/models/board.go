package models

import (
	"encoding/json"
	"strings"
)

// Cell is the content of one board square. Red and Yellow double as player identities.
type Cell uint8

const (
	Empty Cell = iota
	Red
	Yellow
)

// Accepted number of rows or columns.
const (
	MinSize = 4
	MaxSize = 20
)

// ValidDimensions reports whether a rows x cols board is accepted.
func ValidDimensions(rows, cols int) bool {
	return rows >= MinSize && rows <= MaxSize && cols >= MinSize && cols <= MaxSize
}

func (c Cell) Valid() bool {
	return c == Empty || c == Red || c == Yellow
}

// IsPlayer reports whether c names one of the two players.
func (c Cell) IsPlayer() bool {
	return c == Red || c == Yellow
}

// Opponent returns the other player. Empty maps to Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case Red:
		return Yellow
	case Yellow:
		return Red
	}
	return Empty
}

func (c Cell) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	}
	return "empty"
}

// Board is a rows x cols grid with row 0 at the top. Pieces fall to the lowest
// empty row of a column, so an empty cell never sits below a filled one.
type Board struct {
	rows  int
	cols  int
	cells []Cell
}

func NewBoard(rows, cols int) (*Board, error) {
	if !ValidDimensions(rows, cols) {
		return nil, ErrInvalidDimensions
	}
	return &Board{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}, nil
}

// FromGrid builds a board from a row-major grid, rejecting ragged rows, unknown
// cell values and pieces floating above an empty cell.
func FromGrid(grid [][]Cell) (*Board, error) {
	if len(grid) == 0 || !ValidDimensions(len(grid), len(grid[0])) {
		return nil, ErrInvalidDimensions
	}
	b, err := NewBoard(len(grid), len(grid[0]))
	if err != nil {
		return nil, err
	}
	for r, row := range grid {
		if len(row) != b.cols {
			return nil, ErrInvalidDimensions
		}
		for c, cell := range row {
			if !cell.Valid() {
				return nil, ErrInvalidPlayer
			}
			b.cells[r*b.cols+c] = cell
		}
	}
	for c := 0; c < b.cols; c++ {
		for r := 0; r < b.rows-1; r++ {
			if b.at(r, c) != Empty && b.at(r+1, c) == Empty {
				return nil, ErrFloatingPiece
			}
		}
	}
	return b, nil
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Center is the preferred column: cols/2.
func (b *Board) Center() int { return b.cols / 2 }

func (b *Board) inBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

func (b *Board) at(row, col int) Cell {
	return b.cells[row*b.cols+col]
}

// At returns the cell at (row, col), or Empty when out of range.
func (b *Board) At(row, col int) Cell {
	if !b.inBounds(row, col) {
		return Empty
	}
	return b.at(row, col)
}

func (b *Board) IsLegalColumn(col int) bool {
	return col >= 0 && col < b.cols && b.at(0, col) == Empty
}

// ValidColumns returns the legal columns in ascending order.
func (b *Board) ValidColumns() []int {
	cols := make([]int, 0, b.cols)
	for c := 0; c < b.cols; c++ {
		if b.at(0, c) == Empty {
			cols = append(cols, c)
		}
	}
	return cols
}

func (b *Board) IsFull() bool {
	for c := 0; c < b.cols; c++ {
		if b.at(0, c) == Empty {
			return false
		}
	}
	return true
}

// DropRow returns the row a piece dropped in col would land on.
func (b *Board) DropRow(col int) (int, error) {
	if col < 0 || col >= b.cols {
		return -1, ErrInvalidColumn
	}
	for row := b.rows - 1; row >= 0; row-- {
		if b.at(row, col) == Empty {
			return row, nil
		}
	}
	return -1, ErrColumnFull
}

// Place puts p on an empty cell. Every Place must be matched by a Remove
// before the board is reused for a sibling branch.
func (b *Board) Place(row, col int, p Cell) error {
	if col < 0 || col >= b.cols {
		return ErrInvalidColumn
	}
	if row < 0 || row >= b.rows {
		return ErrInvalidRow
	}
	if !p.IsPlayer() {
		return ErrInvalidPlayer
	}
	if b.at(row, col) != Empty {
		return ErrCellOccupied
	}
	b.cells[row*b.cols+col] = p
	return nil
}

// Remove empties the cell at (row, col).
func (b *Board) Remove(row, col int) error {
	if col < 0 || col >= b.cols {
		return ErrInvalidColumn
	}
	if row < 0 || row >= b.rows {
		return ErrInvalidRow
	}
	b.cells[row*b.cols+col] = Empty
	return nil
}

// Drop lets p fall into col and returns the landing row.
func (b *Board) Drop(col int, p Cell) (int, error) {
	if !p.IsPlayer() {
		return -1, ErrInvalidPlayer
	}
	row, err := b.DropRow(col)
	if err != nil {
		return -1, err
	}
	b.cells[row*b.cols+col] = p
	return row, nil
}

// Count returns how many cells hold c.
func (b *Board) Count(c Cell) int {
	n := 0
	for _, cell := range b.cells {
		if cell == c {
			n++
		}
	}
	return n
}

func (b *Board) Clone() *Board {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return &Board{rows: b.rows, cols: b.cols, cells: cells}
}

// Equal reports whether both boards have the same shape and contents.
func (b *Board) Equal(o *Board) bool {
	if b.rows != o.rows || b.cols != o.cols {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// AppendKey appends the raw cell contents to dst, for use as a map key.
func (b *Board) AppendKey(dst []byte) []byte {
	for _, cell := range b.cells {
		dst = append(dst, byte(cell))
	}
	return dst
}

// Grid returns a row-major copy of the cells.
func (b *Board) Grid() [][]Cell {
	grid := make([][]Cell, b.rows)
	for r := range grid {
		grid[r] = make([]Cell, b.cols)
		copy(grid[r], b.cells[r*b.cols:(r+1)*b.cols])
	}
	return grid
}

// String renders one line per row using 0, R and Y.
func (b *Board) String() string {
	var sb strings.Builder
	sb.Grow(b.rows * (b.cols + 1))
	for r := 0; r < b.rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < b.cols; c++ {
			switch b.at(r, c) {
			case Red:
				sb.WriteByte('R')
			case Yellow:
				sb.WriteByte('Y')
			default:
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

func (b *Board) MarshalJSON() ([]byte, error) {
	grid := make([][]int, b.rows)
	for r := range grid {
		grid[r] = make([]int, b.cols)
		for c := range grid[r] {
			grid[r][c] = int(b.at(r, c))
		}
	}
	return json.Marshal(grid)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var raw [][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	grid := make([][]Cell, len(raw))
	for r, row := range raw {
		grid[r] = make([]Cell, len(row))
		for c, v := range row {
			if v < 0 || v > int(Yellow) {
				return ErrInvalidPlayer
			}
			grid[r][c] = Cell(v)
		}
	}
	parsed, err := FromGrid(grid)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}
