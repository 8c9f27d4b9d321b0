package models

import (
	"time"

	"github.com/google/uuid"
)

type KafkaEventType string

const (
	EventGameStarted   KafkaEventType = "GAME_STARTED"
	EventMoveMade      KafkaEventType = "MOVE_MADE"
	EventMoveUndone    KafkaEventType = "MOVE_UNDONE"
	EventGameCompleted KafkaEventType = "GAME_COMPLETED"
)

type GameStartedEvent struct {
	Type           KafkaEventType `json:"type"`
	GameID         uuid.UUID      `json:"game_id"`
	Rows           int            `json:"rows"`
	Cols           int            `json:"cols"`
	Mode           GameMode       `json:"mode"`
	Difficulty     Difficulty     `json:"difficulty,omitempty"`
	StartingPlayer PlayerColor    `json:"starting_player"`
	Timestamp      time.Time      `json:"timestamp"`
}

type MoveMadeEvent struct {
	Type       KafkaEventType `json:"type"`
	GameID     uuid.UUID      `json:"game_id"`
	Player     PlayerColor    `json:"player"`
	Column     int            `json:"column"`
	Row        int            `json:"row"`
	MoveNumber int            `json:"move_number"`
	ByAI       bool           `json:"by_ai"`
	Timestamp  time.Time      `json:"timestamp"`
}

type GameCompletedEvent struct {
	Type            KafkaEventType `json:"type"`
	GameID          uuid.UUID      `json:"game_id"`
	Status          GameStatus     `json:"status"`
	Winner          *PlayerColor   `json:"winner,omitempty"`
	WinningLine     *Line          `json:"winning_line,omitempty"`
	Signature       string         `json:"signature"`
	TotalMoves      int            `json:"total_moves"`
	DurationSeconds int            `json:"duration_seconds"`
	Timestamp       time.Time      `json:"timestamp"`
}

type GameStatistics struct {
	TotalGames      int     `json:"total_games"`
	ActiveGames     int     `json:"active_games"`
	BotWins         int     `json:"bot_wins"`
	HumanWins       int     `json:"human_wins"`
	Draws           int     `json:"draws"`
	AvgMovesPerGame float64 `json:"avg_moves_per_game"`
	AvgGameDuration float64 `json:"avg_game_duration"`
	LiveSessions    int     `json:"live_sessions"`
}

type PopularColumn struct {
	Column     int     `json:"column"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CommonGame counts finished games sharing one canonical signature.
type CommonGame struct {
	Signature string `json:"signature"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	Games     int    `json:"games"`
}
