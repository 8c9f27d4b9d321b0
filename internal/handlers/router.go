package handlers

import (
	"connect4engine/internal/middleware"
	"connect4engine/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps holds what the router serves. Analytics and DB are optional.
type RouterDeps struct {
	Games     *services.GameService
	Analytics *services.AnalyticsService
	DB        Pinger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	gameHandler := NewGameHandler(deps.Games, deps.DB)
	wsHandler := NewWSHandler(deps.Games)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/games/:id/analysis", wsHandler.HandleAnalysis)

	api := r.Group("/api")
	{
		api.GET("/health", gameHandler.GetHealth)
		api.POST("/analyze", gameHandler.Analyze)

		api.POST("/games", gameHandler.CreateGame)
		api.GET("/games/:id", gameHandler.GetGame)
		api.DELETE("/games/:id", gameHandler.EndGame)
		api.POST("/games/:id/moves", gameHandler.MakeMove)
		api.POST("/games/:id/bot-move", gameHandler.MakeBotMove)
		api.POST("/games/:id/undo", gameHandler.Undo)
		api.POST("/games/:id/redo", gameHandler.Redo)
	}

	if deps.Analytics != nil {
		analyticsHandler := NewAnalyticsHandler(deps.Analytics, deps.Games)
		analytics := api.Group("/analytics")
		{
			analytics.GET("/stats", analyticsHandler.GetStatistics)
			analytics.GET("/popular-columns", analyticsHandler.GetPopularColumns)
			analytics.GET("/common-games", analyticsHandler.GetCommonGames)
		}
	}

	return r
}
