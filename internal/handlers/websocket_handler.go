package handlers

import (
	"context"
	"errors"
	"net/http"

	"connect4engine/internal/models"
	"connect4engine/internal/services"
	"connect4engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler streams the bot's search over a websocket: one
// analysis-progress message per searched column, then bot-moved (and
// game-over when the move ends the game) or analysis-cancelled.
type WSHandler struct {
	gameService *services.GameService
}

func NewWSHandler(gameService *services.GameService) *WSHandler {
	return &WSHandler{gameService: gameService}
}

// GET /ws/games/:id/analysis
func (h *WSHandler) HandleAnalysis(c *gin.Context) {
	gameID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	// Any read error, including the client closing the socket, stops the search.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	move, gameOver, err := h.gameService.StreamBotMove(ctx, gameID, func(p models.AnalysisProgressPayload) {
		h.sendMessage(conn, models.WSMessage{Type: models.WSAnalysisProgress, Payload: p})
	})
	switch {
	case errors.Is(err, services.ErrStaleAnalysis), errors.Is(err, context.Canceled):
		logger.Log.Debug("Analysis cancelled", zap.String("game_id", gameID.String()), zap.Error(err))
		h.sendMessage(conn, models.WSMessage{
			Type:    models.WSAnalysisCancelled,
			Payload: models.ErrorPayload{Message: err.Error()},
		})
	case err != nil:
		h.sendError(conn, err)
	default:
		h.sendMessage(conn, models.WSMessage{Type: models.WSBotMoved, Payload: move})
		if gameOver != nil {
			h.sendMessage(conn, models.WSMessage{Type: models.WSGameOver, Payload: gameOver})
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *WSHandler) sendMessage(conn *websocket.Conn, msg models.WSMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		logger.Log.Error("Failed to send message", zap.Error(err))
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, err error) {
	payload := models.ErrorPayload{Message: err.Error()}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			payload.Code = ec.code
			break
		}
	}
	h.sendMessage(conn, models.WSMessage{Type: models.WSError, Payload: payload})
}
