package services

import (
	"context"
	"time"

	"connect4engine/internal/config"
	"connect4engine/pkg/logger"

	"go.uber.org/zap"
)

// ReaperService abandons sessions nobody has touched for the configured
// idle timeout, so engines and their caches do not pile up.
type ReaperService struct {
	gameService *GameService
	timeout     time.Duration
	interval    time.Duration
}

func NewReaperService(cfg *config.Config, gameService *GameService) *ReaperService {
	timeout := time.Duration(cfg.Game.IdleTimeout) * time.Second
	return &ReaperService{
		gameService: gameService,
		timeout:     timeout,
		interval:    max(timeout/10, time.Second),
	}
}

// Start reaps on a ticker until ctx is cancelled. A zero timeout disables it.
func (rs *ReaperService) Start(ctx context.Context) {
	if rs.timeout <= 0 {
		return
	}
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rs.Reap(now)
		}
	}
}

// Reap ends every session idle since before now minus the timeout and
// returns how many it ended.
func (rs *ReaperService) Reap(now time.Time) int {
	reaped := 0
	for _, id := range rs.gameService.IdleGames(now.Add(-rs.timeout)) {
		if err := rs.gameService.EndGame(id); err != nil {
			continue
		}
		reaped++
		logger.Log.Info("Idle game reaped", zap.String("game_id", id.String()))
	}
	return reaped
}
