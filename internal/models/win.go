package models

// ConnectLength is the number of aligned pieces that wins.
const ConnectLength = 4

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Line is a winning window of ConnectLength cells ordered along its direction.
type Line [ConnectLength]Position

// Scan directions in fixed order: horizontal, vertical, down-right, down-left.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// runLength counts consecutive cells owned by p starting one step past
// (row, col) in direction (dr, dc).
func (b *Board) runLength(row, col, dr, dc int, p Cell) int {
	n := 0
	r, c := row+dr, col+dc
	for b.inBounds(r, c) && b.at(r, c) == p {
		n++
		r += dr
		c += dc
	}
	return n
}

// LocalWin checks the lines through a just-placed piece. When a run of at
// least four exists, it returns the four-cell window containing (row, col)
// that starts earliest along the run.
func (b *Board) LocalWin(row, col int) (Line, bool) {
	if !b.inBounds(row, col) {
		return Line{}, false
	}
	p := b.at(row, col)
	if p == Empty {
		return Line{}, false
	}
	for _, d := range directions {
		dr, dc := d[0], d[1]
		back := b.runLength(row, col, -dr, -dc, p)
		total := back + 1 + b.runLength(row, col, dr, dc, p)
		if total < ConnectLength {
			continue
		}
		start := max(0, back-(ConnectLength-1))
		if start+ConnectLength > total {
			start = total - ConnectLength
		}
		r0, c0 := row-back*dr, col-back*dc
		var line Line
		for i := range line {
			k := start + i
			line[i] = Position{Row: r0 + k*dr, Col: c0 + k*dc}
		}
		return line, true
	}
	return Line{}, false
}

// WinningLine scans the whole board in row-major order and returns the
// first four-cell line found.
func (b *Board) WinningLine() (Line, bool) {
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			p := b.at(r, c)
			if p == Empty {
				continue
			}
			for _, d := range directions {
				if 1+b.runLength(r, c, d[0], d[1], p) < ConnectLength {
					continue
				}
				var line Line
				for i := range line {
					line[i] = Position{Row: r + i*d[0], Col: c + i*d[1]}
				}
				return line, true
			}
		}
	}
	return Line{}, false
}

// Winner returns the owner of the first line found by WinningLine, or Empty.
func (b *Board) Winner() Cell {
	line, ok := b.WinningLine()
	if !ok {
		return Empty
	}
	return b.at(line[0].Row, line[0].Col)
}
