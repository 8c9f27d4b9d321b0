package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"connect4engine/internal/config"
	"connect4engine/internal/models"
	"connect4engine/pkg/logger"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Database struct {
	db *sql.DB
}

func New(cfg *config.Config) (*Database, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connected successfully")
	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping() error {
	return d.db.Ping()
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id                  UUID PRIMARY KEY,
	board_rows          INT NOT NULL,
	board_cols          INT NOT NULL,
	mode                TEXT NOT NULL,
	difficulty          TEXT,
	ai_color            TEXT,
	starting_player     TEXT NOT NULL,
	status              TEXT NOT NULL,
	winner              TEXT,
	winning_line        JSONB,
	signature           TEXT NOT NULL DEFAULT '',
	canonical_signature TEXT,
	total_moves         INT NOT NULL DEFAULT 0,
	duration_seconds    INT,
	started_at          TIMESTAMPTZ NOT NULL,
	completed_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS games_canonical_signature_idx ON games (canonical_signature);

CREATE TABLE IF NOT EXISTS game_moves (
	game_id      UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	move_number  INT NOT NULL,
	player       TEXT NOT NULL,
	column_index INT NOT NULL,
	row_index    INT NOT NULL,
	board        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (game_id, move_number)
);

CREATE TABLE IF NOT EXISTS game_events (
	id          BIGSERIAL PRIMARY KEY,
	game_id     UUID NOT NULL,
	event_type  TEXT NOT NULL,
	event_data  JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func (d *Database) EnsureSchema() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (d *Database) CreateGame(game *models.GameState) error {
	query := `INSERT INTO games (id, board_rows, board_cols, mode, difficulty, ai_color, starting_player, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.db.Exec(query, game.GameID, game.Rows, game.Cols, game.Mode,
		nullString(string(game.Difficulty)), nullString(string(game.AIColor)),
		game.CurrentTurn, game.Status, game.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// SaveMove stores a move with the board as it stands after it.
func (d *Database) SaveMove(gameID uuid.UUID, moveNumber int, move models.Move, board *models.Board) error {
	query := `INSERT INTO game_moves (game_id, move_number, player, column_index, row_index, board)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, move_number) DO UPDATE
		SET player = EXCLUDED.player, column_index = EXCLUDED.column_index,
			row_index = EXCLUDED.row_index, board = EXCLUDED.board, created_at = NOW()`
	_, err := d.db.Exec(query, gameID, moveNumber, models.ColorOf(move.Player), move.Col, move.Row, board.String())
	if err != nil {
		return fmt.Errorf("failed to save game move: %w", err)
	}
	_, err = d.db.Exec(`UPDATE games SET total_moves = $1 WHERE id = $2`, moveNumber, gameID)
	if err != nil {
		return fmt.Errorf("failed to update move count: %w", err)
	}
	return nil
}

func (d *Database) DeleteMove(gameID uuid.UUID, moveNumber int) error {
	_, err := d.db.Exec(`DELETE FROM game_moves WHERE game_id = $1 AND move_number = $2`, gameID, moveNumber)
	if err != nil {
		return fmt.Errorf("failed to delete game move: %w", err)
	}
	_, err = d.db.Exec(`UPDATE games SET total_moves = $1 WHERE id = $2`, moveNumber-1, gameID)
	if err != nil {
		return fmt.Errorf("failed to update move count: %w", err)
	}
	return nil
}

func (d *Database) CompleteGame(game *models.GameState, canonicalSignature string) error {
	var line sql.NullString
	if game.WinningLine != nil {
		data, err := json.Marshal(game.WinningLine)
		if err != nil {
			return fmt.Errorf("failed to encode winning line: %w", err)
		}
		line = sql.NullString{String: string(data), Valid: true}
	}
	completedAt := time.Now()
	if game.CompletedAt != nil {
		completedAt = *game.CompletedAt
	}
	duration := int(completedAt.Sub(game.StartedAt).Seconds())

	query := `UPDATE games SET status = $1, winner = $2, winning_line = $3, signature = $4,
		canonical_signature = $5, total_moves = $6, duration_seconds = $7, completed_at = $8
		WHERE id = $9`
	_, err := d.db.Exec(query, game.Status, game.Winner, line, game.Signature,
		canonicalSignature, game.MoveCount, duration, completedAt, game.GameID)
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	logger.Log.Info("Game completed", zap.String("game_id", game.GameID.String()), zap.String("status", string(game.Status)))
	return nil
}

func (d *Database) ReopenGame(gameID uuid.UUID) error {
	query := `UPDATE games SET status = $1, winner = NULL, winning_line = NULL,
		canonical_signature = NULL, duration_seconds = NULL, completed_at = NULL WHERE id = $2`
	if _, err := d.db.Exec(query, models.GameStatusActive, gameID); err != nil {
		return fmt.Errorf("failed to reopen game: %w", err)
	}
	return nil
}

func (d *Database) SaveEvent(gameID uuid.UUID, eventType models.KafkaEventType, data []byte) error {
	query := `INSERT INTO game_events (game_id, event_type, event_data) VALUES ($1, $2, $3)`
	if _, err := d.db.Exec(query, gameID, eventType, string(data)); err != nil {
		return fmt.Errorf("failed to save game event: %w", err)
	}
	return nil
}

func (d *Database) GetStatistics() (*models.GameStatistics, error) {
	stats := &models.GameStatistics{}
	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'completed' AND mode = 'ai' AND winner = ai_color),
			COUNT(*) FILTER (WHERE status = 'completed' AND mode = 'ai' AND winner <> ai_color),
			COUNT(*) FILTER (WHERE status = 'draw'),
			COALESCE(AVG(total_moves) FILTER (WHERE status IN ('completed', 'draw')), 0),
			COALESCE(AVG(duration_seconds) FILTER (WHERE status IN ('completed', 'draw')), 0)
		FROM games
	`).Scan(&stats.TotalGames, &stats.ActiveGames, &stats.BotWins, &stats.HumanWins,
		&stats.Draws, &stats.AvgMovesPerGame, &stats.AvgGameDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return stats, nil
}

func (d *Database) GetPopularColumns() ([]models.PopularColumn, error) {
	rows, err := d.db.Query(`
		SELECT
			column_index,
			COUNT(*) AS count,
			COUNT(*) * 100.0 / (SELECT COUNT(*) FROM game_moves) AS percentage
		FROM game_moves
		GROUP BY column_index
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular columns: %w", err)
	}
	defer rows.Close()

	var columns []models.PopularColumn
	for rows.Next() {
		var col models.PopularColumn
		if err := rows.Scan(&col.Column, &col.Count, &col.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan popular column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// GetCommonGames groups finished games by canonical signature, so a game and
// its mirror image count as one line of play.
func (d *Database) GetCommonGames(limit int) ([]models.CommonGame, error) {
	rows, err := d.db.Query(`
		SELECT canonical_signature, board_rows, board_cols, COUNT(*) AS games
		FROM games
		WHERE canonical_signature IS NOT NULL AND canonical_signature <> ''
		GROUP BY canonical_signature, board_rows, board_cols
		ORDER BY games DESC, canonical_signature
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get common games: %w", err)
	}
	defer rows.Close()

	var games []models.CommonGame
	for rows.Next() {
		var g models.CommonGame
		if err := rows.Scan(&g.Signature, &g.Rows, &g.Cols, &g.Games); err != nil {
			return nil, fmt.Errorf("failed to scan common game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
