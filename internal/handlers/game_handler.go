package handlers

import (
	"context"
	"errors"
	"net/http"

	"connect4engine/internal/bot"
	"connect4engine/internal/models"
	"connect4engine/internal/services"
	"connect4engine/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

type GameHandler struct {
	games *services.GameService
	db    Pinger
}

// NewGameHandler builds the game routes. db may be nil when the server runs
// without persistence.
func NewGameHandler(games *services.GameService, db Pinger) *GameHandler {
	return &GameHandler{games: games, db: db}
}

// POST /api/games
func (gh *GameHandler) CreateGame(c *gin.Context) {
	var payload models.CreateGamePayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
			return
		}
	}
	game, err := gh.games.CreateGame(payload)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, game)
}

// GET /api/games/:id
func (gh *GameHandler) GetGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	game, err := gh.games.GetGame(id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, game)
}

// POST /api/games/:id/moves
func (gh *GameHandler) MakeMove(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	var payload models.MakeMovePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	move, gameOver, err := gh.games.MakeMove(id, *payload.Column)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"move": move, "game_over": gameOver})
}

// POST /api/games/:id/bot-move
func (gh *GameHandler) MakeBotMove(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	move, gameOver, err := gh.games.MakeBotMove(id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"move": move, "game_over": gameOver})
}

// POST /api/games/:id/undo
func (gh *GameHandler) Undo(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	game, err := gh.games.Undo(id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, game)
}

// POST /api/games/:id/redo
func (gh *GameHandler) Redo(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	move, gameOver, err := gh.games.Redo(id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"move": move, "game_over": gameOver})
}

// DELETE /api/games/:id
func (gh *GameHandler) EndGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	if err := gh.games.EndGame(id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"game_id": id, "status": models.GameStatusAbandoned})
}

// POST /api/analyze
func (gh *GameHandler) Analyze(c *gin.Context) {
	var payload models.AnalyzePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	res, err := gh.games.Analyze(c.Request.Context(), payload.Board, payload.Searcher, payload.Depth)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, res)
}

// GET /api/health
func (gh *GameHandler) GetHealth(c *gin.Context) {
	status := gin.H{"status": "ok", "active_games": gh.games.ActiveGames(), "database": "disabled"}
	if gh.db != nil {
		if err := gh.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
			return
		}
		status["database"] = "connected"
	}
	c.JSON(http.StatusOK, status)
}

func gameID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_GAME_ID", "Game id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrGameNotFound, http.StatusNotFound, "GAME_NOT_FOUND"},
	{services.ErrGameNotActive, http.StatusConflict, "GAME_NOT_ACTIVE"},
	{services.ErrNotYourTurn, http.StatusConflict, "NOT_YOUR_TURN"},
	{services.ErrNotBotTurn, http.StatusConflict, "NOT_BOT_TURN"},
	{services.ErrNothingToUndo, http.StatusConflict, "NOTHING_TO_UNDO"},
	{services.ErrNothingToRedo, http.StatusConflict, "NOTHING_TO_REDO"},
	{services.ErrAnalysisInProgress, http.StatusConflict, "ANALYSIS_IN_PROGRESS"},
	{services.ErrStaleAnalysis, http.StatusConflict, "STALE_ANALYSIS"},
	{services.ErrInvalidGameSettings, http.StatusBadRequest, "INVALID_SETTINGS"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "ANALYSIS_TIMEOUT"},
	{bot.ErrNoLegalMove, http.StatusConflict, "NO_LEGAL_MOVE"},
	{models.ErrInvalidColumn, http.StatusBadRequest, "INVALID_COLUMN"},
	{models.ErrColumnFull, http.StatusConflict, "COLUMN_FULL"},
	{models.ErrInvalidDimensions, http.StatusBadRequest, "INVALID_DIMENSIONS"},
	{models.ErrInvalidPlayer, http.StatusBadRequest, "INVALID_PLAYER"},
	{models.ErrFloatingPiece, http.StatusBadRequest, "INVALID_BOARD"},
}

// respondError maps domain errors to status codes. Anything else is handed
// to the error middleware as an internal error.
func respondError(c *gin.Context, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			utils.ErrorResponse(c, ec.status, ec.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
}
