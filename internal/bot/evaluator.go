package bot

import "connect4engine/internal/models"

// Window weights. Opponent windows score the same values negated.
const (
	scoreFour    = 100000
	scoreThree   = 80
	scoreTwo     = 10
	centerWeight = 6
)

// Window directions: right, down, down-right, up-right.
var windowDirections = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {-1, 1}}

// Evaluate scores a non-terminal board from searcher's point of view by
// summing every four-cell window plus a centre-column term.
// Evaluate(b, p) == -Evaluate(b, p.Opponent()) for every board.
func Evaluate(b *models.Board, searcher models.Cell) int {
	opp := searcher.Opponent()
	rows, cols := b.Rows(), b.Cols()
	score := 0

	center := b.Center()
	for r := 0; r < rows; r++ {
		switch b.At(r, center) {
		case searcher:
			score += centerWeight
		case opp:
			score -= centerWeight
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for _, d := range windowDirections {
				endR, endC := r+3*d[0], c+3*d[1]
				if endR < 0 || endR >= rows || endC < 0 || endC >= cols {
					continue
				}
				own, theirs := 0, 0
				for i := 0; i < models.ConnectLength; i++ {
					switch b.At(r+i*d[0], c+i*d[1]) {
					case searcher:
						own++
					case opp:
						theirs++
					}
				}
				score += scoreWindow(own, theirs)
			}
		}
	}
	return score
}

func scoreWindow(own, theirs int) int {
	if own > 0 && theirs > 0 {
		return 0
	}
	empty := models.ConnectLength - own - theirs
	switch {
	case own == 4:
		return scoreFour
	case theirs == 4:
		return -scoreFour
	case own == 3 && empty == 1:
		return scoreThree
	case theirs == 3 && empty == 1:
		return -scoreThree
	case own == 2 && empty == 2:
		return scoreTwo
	case theirs == 2 && empty == 2:
		return -scoreTwo
	}
	return 0
}
