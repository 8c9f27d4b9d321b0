package models

import (
	"time"

	"github.com/google/uuid"
)

type GameStatus string

const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusDraw      GameStatus = "draw"
	GameStatusAbandoned GameStatus = "abandoned"
)

type GameMode string

const (
	GameModeAI    GameMode = "ai"
	GameModeHuman GameMode = "human"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type PlayerColor string

const (
	ColorRed    PlayerColor = "red"
	ColorYellow PlayerColor = "yellow"
)

// Cell maps a colour to its board value; unknown colours map to Empty.
func (pc PlayerColor) Cell() Cell {
	switch pc {
	case ColorRed:
		return Red
	case ColorYellow:
		return Yellow
	}
	return Empty
}

func ColorOf(c Cell) PlayerColor {
	if c == Yellow {
		return ColorYellow
	}
	return ColorRed
}

// Move is one applied drop.
type Move struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Player Cell `json:"player"`
}

type GameState struct {
	GameID      uuid.UUID   `json:"game_id"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	Board       *Board      `json:"board"`
	CurrentTurn PlayerColor `json:"current_turn"`
	Mode        GameMode    `json:"mode"`
	AIColor     PlayerColor `json:"ai_color,omitempty"`
	Difficulty  Difficulty  `json:"difficulty,omitempty"`
	Status      GameStatus  `json:"status"`
	Winner      *string     `json:"winner,omitempty"`
	WinningLine *Line       `json:"winning_line,omitempty"`
	MoveCount   int         `json:"move_count"`
	CanUndo     bool        `json:"can_undo"`
	CanRedo     bool        `json:"can_redo"`
	Signature   string      `json:"signature"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type WSMessageType string

const (
	WSAnalysisProgress  WSMessageType = "analysis-progress"
	WSAnalysisCancelled WSMessageType = "analysis-cancelled"
	WSBotMoved          WSMessageType = "bot-moved"
	WSGameOver          WSMessageType = "game-over"
	WSError             WSMessageType = "error"
)

type WSMessage struct {
	Type    WSMessageType `json:"type"`
	Payload interface{}   `json:"payload"`
}

type CreateGamePayload struct {
	Rows           int         `json:"rows" binding:"omitempty,min=4,max=20"`
	Cols           int         `json:"cols" binding:"omitempty,min=4,max=20"`
	Mode           GameMode    `json:"mode" binding:"omitempty,oneof=ai human"`
	Difficulty     Difficulty  `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	StartingPlayer PlayerColor `json:"starting_player" binding:"omitempty,oneof=red yellow"`
	AIColor        PlayerColor `json:"ai_color" binding:"omitempty,oneof=red yellow"`
}

type MakeMovePayload struct {
	Column *int `json:"column" binding:"required,min=0"`
}

type AnalyzePayload struct {
	Board    *Board      `json:"board" binding:"required"`
	Searcher PlayerColor `json:"searcher" binding:"required,oneof=red yellow"`
	Depth    int         `json:"depth" binding:"required,min=1"`
}

type MovePayload struct {
	Column      int         `json:"column"`
	Row         int         `json:"row"`
	Color       PlayerColor `json:"color"`
	NextTurn    PlayerColor `json:"next_turn"`
	Board       *Board      `json:"board"`
	MoveNumber  int         `json:"move_number"`
	Score       *int        `json:"score,omitempty"`
	WinningLine *Line       `json:"winning_line,omitempty"`
}

type GameOverPayload struct {
	Winner      *string `json:"winner"`
	Reason      string  `json:"reason"`
	Board       *Board  `json:"board"`
	WinningLine *Line   `json:"winning_line,omitempty"`
	Duration    int     `json:"duration_seconds"`
}

// AnalysisProgressPayload is a live snapshot of an incremental search.
// Scores[c] is nil for columns not yet evaluated at any depth.
type AnalysisProgressPayload struct {
	Depth    int    `json:"depth"`
	MaxDepth int    `json:"max_depth"`
	Scores   []*int `json:"scores"`
}

type AnalyzeResultPayload struct {
	Column int    `json:"column"`
	Score  int    `json:"score"`
	Depth  int    `json:"depth"`
	Scores []*int `json:"scores"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
