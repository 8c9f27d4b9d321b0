package services

import (
	"encoding/json"
	"fmt"

	"connect4engine/internal/models"
	"connect4engine/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStore records raw game events and answers aggregate queries.
type EventStore interface {
	SaveEvent(gameID uuid.UUID, eventType models.KafkaEventType, data []byte) error
	GetStatistics() (*models.GameStatistics, error)
	GetPopularColumns() ([]models.PopularColumn, error)
	GetCommonGames(limit int) ([]models.CommonGame, error)
}

type AnalyticsService struct {
	store EventStore
}

func NewAnalyticsService(store EventStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// ProcessEvent stores one JSON game event. Unknown event types are skipped.
func (as *AnalyticsService) ProcessEvent(data []byte) error {
	var base struct {
		Type   models.KafkaEventType `json:"type"`
		GameID uuid.UUID             `json:"game_id"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch base.Type {
	case models.EventGameStarted, models.EventMoveMade, models.EventMoveUndone, models.EventGameCompleted:
	default:
		logger.Log.Debug("Skipping unknown event", zap.String("type", string(base.Type)))
		return nil
	}

	if err := as.store.SaveEvent(base.GameID, base.Type, data); err != nil {
		return err
	}

	fields := []zap.Field{zap.String("type", string(base.Type)), zap.String("game_id", base.GameID.String())}
	if base.Type == models.EventGameCompleted {
		var event models.GameCompletedEvent
		if err := json.Unmarshal(data, &event); err == nil {
			fields = append(fields, zap.String("status", string(event.Status)), zap.String("signature", event.Signature))
		}
		logger.Log.Info("Processed event", fields...)
		return nil
	}
	logger.Log.Debug("Processed event", fields...)
	return nil
}

func (as *AnalyticsService) GetStatistics() (*models.GameStatistics, error) {
	return as.store.GetStatistics()
}

func (as *AnalyticsService) GetPopularColumns() ([]models.PopularColumn, error) {
	return as.store.GetPopularColumns()
}

func (as *AnalyticsService) GetCommonGames(limit int) ([]models.CommonGame, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return as.store.GetCommonGames(limit)
}
