package models

// Error is a constant error value, comparable with == and errors.Is.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidColumn     Error = "invalid column"
	ErrInvalidRow        Error = "invalid row"
	ErrColumnFull        Error = "column is full"
	ErrCellOccupied      Error = "cell is occupied"
	ErrInvalidPlayer     Error = "invalid player"
	ErrInvalidDimensions Error = "board needs between 4 and 20 rows and columns"
	ErrFloatingPiece     Error = "piece above an empty cell"
	ErrGameOver          Error = "game is already over"
)
