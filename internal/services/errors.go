package services

import "errors"

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameNotActive       = errors.New("game is not active")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNotBotTurn          = errors.New("not bot's turn")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrNothingToRedo       = errors.New("nothing to redo")
	ErrStaleAnalysis       = errors.New("game changed while the bot was thinking")
	ErrAnalysisInProgress  = errors.New("bot is already thinking")
	ErrInvalidGameSettings = errors.New("invalid game settings")
)
