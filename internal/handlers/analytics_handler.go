package handlers

import (
	"net/http"
	"strconv"

	"connect4engine/internal/services"
	"connect4engine/internal/utils"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	gameService      *services.GameService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, gameService *services.GameService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		gameService:      gameService,
	}
}

// GET /api/analytics/stats
func (ah *AnalyticsHandler) GetStatistics(c *gin.Context) {
	stats, err := ah.analyticsService.GetStatistics()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "STATS_ERROR", "Failed to fetch statistics")
		return
	}
	stats.LiveSessions = ah.gameService.ActiveGames()
	utils.SuccessResponse(c, http.StatusOK, stats)
}

// GET /api/analytics/popular-columns
func (ah *AnalyticsHandler) GetPopularColumns(c *gin.Context) {
	columns, err := ah.analyticsService.GetPopularColumns()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "STATS_ERROR", "Failed to fetch column stats")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{
		"columns": columns,
	})
}

// GET /api/analytics/common-games
func (ah *AnalyticsHandler) GetCommonGames(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	games, err := ah.analyticsService.GetCommonGames(limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "STATS_ERROR", "Failed to fetch common games")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{
		"games": games,
		"total": len(games),
	})
}
