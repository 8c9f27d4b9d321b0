package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"connect4engine/internal/bot"
	"connect4engine/internal/config"
	"connect4engine/internal/models"
	"connect4engine/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameStore persists game records. Errors are logged and never fail a move.
type GameStore interface {
	CreateGame(game *models.GameState) error
	SaveMove(gameID uuid.UUID, moveNumber int, move models.Move, board *models.Board) error
	DeleteMove(gameID uuid.UUID, moveNumber int) error
	CompleteGame(game *models.GameState, canonicalSignature string) error
	ReopenGame(gameID uuid.UUID) error
}

// EventPublisher ships game events to the analytics pipeline.
type EventPublisher interface {
	PublishGameStarted(event models.GameStartedEvent) error
	PublishMoveMade(event models.MoveMadeEvent) error
	PublishMoveUndone(event models.MoveMadeEvent) error
	PublishGameCompleted(event models.GameCompletedEvent) error
}

// ResultCache shares stateless analysis results between server instances.
// Get reports a miss as ok == false.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type session struct {
	mu sync.Mutex

	id         uuid.UUID
	board      *models.Board
	engine     *bot.Engine
	first      models.Cell
	turn       models.Cell
	mode       models.GameMode
	aiColor    models.PlayerColor
	difficulty models.Difficulty

	history []models.Move
	redo    []models.Move

	status      models.GameStatus
	winner      models.Cell
	line        *models.Line
	startedAt   time.Time
	completedAt *time.Time
	lastActive  time.Time

	// version changes on every board mutation; a running analysis compares
	// it between steps to notice that its position is gone.
	version   uint64
	analyzing bool
}

type GameService struct {
	cfg        *config.Config
	store      GameStore
	events     EventPublisher
	results    ResultCache
	resultsTTL time.Duration
	games      map[uuid.UUID]*session
	gamesMutex sync.RWMutex
}

// NewGameService wires the session layer. store and events may be nil.
func NewGameService(cfg *config.Config, store GameStore, events EventPublisher) *GameService {
	return &GameService{
		cfg:    cfg,
		store:  store,
		events: events,
		games:  make(map[uuid.UUID]*session),
	}
}

// SetResultCache makes Analyze consult rc before searching.
func (gs *GameService) SetResultCache(rc ResultCache, ttl time.Duration) {
	gs.results = rc
	gs.resultsTTL = ttl
}

func (gs *GameService) CreateGame(opts models.CreateGamePayload) (*models.GameState, error) {
	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = gs.cfg.Board.Rows
	}
	if cols == 0 {
		cols = gs.cfg.Board.Cols
	}
	mode := opts.Mode
	if mode == "" {
		mode = models.GameModeAI
	}
	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	first := models.Red
	if opts.StartingPlayer != "" {
		first = opts.StartingPlayer.Cell()
	}
	aiColor := opts.AIColor
	if aiColor == "" {
		aiColor = gs.cfg.AI.Player
	}
	if !first.IsPlayer() || !aiColor.Cell().IsPlayer() {
		return nil, ErrInvalidGameSettings
	}
	if mode != models.GameModeAI && mode != models.GameModeHuman {
		return nil, ErrInvalidGameSettings
	}

	board, err := models.NewBoard(rows, cols)
	if err != nil {
		return nil, err
	}
	engine, err := bot.NewEngine(rows, cols)
	if err != nil {
		return nil, err
	}

	s := &session{
		id:         uuid.New(),
		board:      board,
		engine:     engine,
		first:      first,
		turn:       first,
		mode:       mode,
		difficulty: difficulty,
		status:     models.GameStatusActive,
		startedAt:  time.Now(),
	}
	s.lastActive = s.startedAt
	if mode == models.GameModeAI {
		s.aiColor = aiColor
	}

	gs.gamesMutex.Lock()
	gs.games[s.id] = s
	gs.gamesMutex.Unlock()

	state := s.state()
	if gs.store != nil {
		if err := gs.store.CreateGame(state); err != nil {
			logger.Log.Error("Failed to store game", zap.String("game_id", s.id.String()), zap.Error(err))
		}
	}
	if gs.events != nil {
		err := gs.events.PublishGameStarted(models.GameStartedEvent{
			Type:           models.EventGameStarted,
			GameID:         s.id,
			Rows:           rows,
			Cols:           cols,
			Mode:           mode,
			Difficulty:     difficulty,
			StartingPlayer: models.ColorOf(first),
			Timestamp:      s.startedAt,
		})
		if err != nil {
			logger.Log.Warn("Failed to publish game started", zap.Error(err))
		}
	}

	logger.Log.Info("Game created",
		zap.String("game_id", s.id.String()),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.String("mode", string(mode)),
		zap.String("difficulty", string(difficulty)),
	)
	return state, nil
}

func (gs *GameService) GetGame(gameID uuid.UUID) (*models.GameState, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(), nil
}

// MakeMove plays column for the side to move. In AI games only the human
// side can be played this way.
func (gs *GameService) MakeMove(gameID uuid.UUID, column int) (*models.MovePayload, *models.GameOverPayload, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.GameStatusActive {
		return nil, nil, ErrGameNotActive
	}
	if s.isBotTurn() {
		return nil, nil, ErrNotYourTurn
	}
	if !s.board.IsLegalColumn(column) {
		if column < 0 || column >= s.board.Cols() {
			return nil, nil, models.ErrInvalidColumn
		}
		return nil, nil, models.ErrColumnFull
	}
	s.redo = s.redo[:0]
	return gs.apply(s, column, false, nil)
}

// MakeBotMove searches at the game's difficulty depth and plays the result.
func (gs *GameService) MakeBotMove(gameID uuid.UUID) (*models.MovePayload, *models.GameOverPayload, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBotTurn(); err != nil {
		return nil, nil, err
	}
	depth := gs.cfg.DepthFor(s.difficulty)
	res, err := s.engine.Analyze(s.board, s.turn, depth)
	if err != nil {
		return nil, nil, fmt.Errorf("bot search failed: %w", err)
	}
	s.redo = s.redo[:0]
	return gs.apply(s, res.Column, true, &res.Score)
}

// StreamBotMove runs the bot's search one column at a time, reporting
// progress after each step, and plays the best column once the search ends.
// The session stays unlocked between steps; a move, undo or redo made in the
// meantime aborts the search with ErrStaleAnalysis.
func (gs *GameService) StreamBotMove(ctx context.Context, gameID uuid.UUID, onProgress func(models.AnalysisProgressPayload)) (*models.MovePayload, *models.GameOverPayload, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	if err := s.checkBotTurn(); err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	if s.analyzing {
		s.mu.Unlock()
		return nil, nil, ErrAnalysisInProgress
	}
	version, cols := s.version, s.board.Cols()
	sched, err := s.engine.NewScheduler(s.board.Clone(), s.turn, gs.cfg.DepthFor(s.difficulty))
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	s.analyzing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		s.mu.Lock()
		if s.version != version {
			s.mu.Unlock()
			return nil, nil, ErrStaleAnalysis
		}
		done, err := sched.StepContext(ctx)
		progress := sched.Progress()
		s.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		if onProgress != nil {
			onProgress(ProgressPayload(progress, cols))
		}
		if done {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return nil, nil, ErrStaleAnalysis
	}
	res, err := sched.Result()
	if err != nil {
		return nil, nil, err
	}
	s.redo = s.redo[:0]
	return gs.apply(s, res.Column, true, &res.Score)
}

// Undo takes back the last move and reopens a finished game.
func (gs *GameService) Undo(gameID uuid.UUID) (*models.GameState, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.GameStatusAbandoned {
		return nil, ErrGameNotActive
	}
	if len(s.history) == 0 {
		return nil, ErrNothingToUndo
	}
	last := s.history[len(s.history)-1]
	if err := s.board.Remove(last.Row, last.Col); err != nil {
		return nil, err
	}
	s.history = s.history[:len(s.history)-1]
	s.redo = append(s.redo, last)
	s.turn = last.Player
	s.version++
	s.lastActive = time.Now()

	if s.status != models.GameStatusActive {
		s.status = models.GameStatusActive
		s.winner = models.Empty
		s.line = nil
		s.completedAt = nil
		if gs.store != nil {
			if err := gs.store.ReopenGame(s.id); err != nil {
				logger.Log.Error("Failed to reopen game", zap.String("game_id", s.id.String()), zap.Error(err))
			}
		}
	}
	if gs.store != nil {
		if err := gs.store.DeleteMove(s.id, len(s.history)+1); err != nil {
			logger.Log.Error("Failed to delete move", zap.String("game_id", s.id.String()), zap.Error(err))
		}
	}
	if gs.events != nil {
		if err := gs.events.PublishMoveUndone(s.moveEvent(models.EventMoveUndone, last, len(s.history)+1, false)); err != nil {
			logger.Log.Warn("Failed to publish move undone", zap.Error(err))
		}
	}

	logger.Log.Debug("Move undone", zap.String("game_id", s.id.String()), zap.Int("column", last.Col))
	return s.state(), nil
}

// Redo replays the most recently undone move.
func (gs *GameService) Redo(gameID uuid.UUID) (*models.MovePayload, *models.GameOverPayload, error) {
	s, err := gs.session(gameID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.GameStatusActive {
		return nil, nil, ErrGameNotActive
	}
	if len(s.redo) == 0 {
		return nil, nil, ErrNothingToRedo
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	return gs.apply(s, next.Col, false, nil)
}

// EndGame abandons an active game and forgets the session.
func (gs *GameService) EndGame(gameID uuid.UUID) error {
	gs.gamesMutex.Lock()
	s, ok := gs.games[gameID]
	delete(gs.games, gameID)
	gs.gamesMutex.Unlock()
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	if s.status == models.GameStatusActive {
		gs.finish(s, models.GameStatusAbandoned, models.Empty, nil, "abandoned")
	}
	logger.Log.Info("Game ended", zap.String("game_id", s.id.String()), zap.String("status", string(s.status)))
	return nil
}

// Analyze is a stateless search for the posted position, with a fresh
// engine cache. Results are shared through the result cache when one is set.
func (gs *GameService) Analyze(ctx context.Context, board *models.Board, searcher models.PlayerColor, depth int) (*models.AnalyzeResultPayload, error) {
	if !searcher.Cell().IsPlayer() {
		return nil, models.ErrInvalidPlayer
	}
	if !models.ValidDimensions(board.Rows(), board.Cols()) {
		return nil, models.ErrInvalidDimensions
	}
	depth = min(depth, gs.cfg.AI.MaxDepth)
	key := analysisKey(board, searcher, depth)
	if res, ok := gs.cachedAnalysis(ctx, key); ok {
		return res, nil
	}

	engine, err := bot.NewEngine(board.Rows(), board.Cols())
	if err != nil {
		return nil, err
	}
	if timeout := gs.cfg.AI.AnalyzeTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	res, err := engine.AnalyzeContext(ctx, board, searcher.Cell(), depth)
	if err != nil {
		return nil, err
	}
	scores := make([]*int, board.Cols())
	for _, cs := range res.Scores {
		scores[cs.Column] = &cs.Score
	}
	out := &models.AnalyzeResultPayload{
		Column: res.Column,
		Score:  res.Score,
		Depth:  res.Depth,
		Scores: scores,
	}
	gs.storeAnalysis(ctx, key, out)
	return out, nil
}

func analysisKey(board *models.Board, searcher models.PlayerColor, depth int) string {
	return fmt.Sprintf("analysis:%dx%d:%s:%d:%s", board.Rows(), board.Cols(), searcher, depth,
		strings.ReplaceAll(board.String(), "\n", "/"))
}

func (gs *GameService) cachedAnalysis(ctx context.Context, key string) (*models.AnalyzeResultPayload, bool) {
	if gs.results == nil {
		return nil, false
	}
	raw, ok, err := gs.results.Get(ctx, key)
	if err != nil {
		logger.Log.Warn("Result cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res models.AnalyzeResultPayload
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		logger.Log.Warn("Discarding unreadable cached result", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &res, true
}

func (gs *GameService) storeAnalysis(ctx context.Context, key string, res *models.AnalyzeResultPayload) {
	if gs.results == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := gs.results.Set(ctx, key, string(data), gs.resultsTTL); err != nil {
		logger.Log.Warn("Result cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// IdleGames lists sessions with no move, undo or redo since cutoff.
func (gs *GameService) IdleGames(cutoff time.Time) []uuid.UUID {
	gs.gamesMutex.RLock()
	sessions := make([]*session, 0, len(gs.games))
	for _, s := range gs.games {
		sessions = append(sessions, s)
	}
	gs.gamesMutex.RUnlock()

	var idle []uuid.UUID
	for _, s := range sessions {
		s.mu.Lock()
		if s.lastActive.Before(cutoff) && !s.analyzing {
			idle = append(idle, s.id)
		}
		s.mu.Unlock()
	}
	return idle
}

func (gs *GameService) ActiveGames() int {
	gs.gamesMutex.RLock()
	defer gs.gamesMutex.RUnlock()
	return len(gs.games)
}

// ProgressPayload lays scheduler progress out by column.
func ProgressPayload(p bot.Progress, cols int) models.AnalysisProgressPayload {
	scores := make([]*int, cols)
	for _, cs := range p.Scores {
		scores[cs.Column] = &cs.Score
	}
	return models.AnalysisProgressPayload{
		Depth:    p.Depth,
		MaxDepth: p.MaxDepth,
		Scores:   scores,
	}
}

func (gs *GameService) session(gameID uuid.UUID) (*session, error) {
	gs.gamesMutex.RLock()
	defer gs.gamesMutex.RUnlock()
	s, ok := gs.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s, nil
}

// apply drops the side to move into column and settles the game state.
// The caller holds s.mu and has validated the column.
func (gs *GameService) apply(s *session, column int, byAI bool, score *int) (*models.MovePayload, *models.GameOverPayload, error) {
	p := s.turn
	row, err := s.board.Drop(column, p)
	if err != nil {
		return nil, nil, err
	}
	move := models.Move{Row: row, Col: column, Player: p}
	s.history = append(s.history, move)
	s.version++
	s.lastActive = time.Now()

	if gs.store != nil {
		if err := gs.store.SaveMove(s.id, len(s.history), move, s.board); err != nil {
			logger.Log.Error("Failed to save move", zap.String("game_id", s.id.String()), zap.Error(err))
		}
	}
	if gs.events != nil {
		if err := gs.events.PublishMoveMade(s.moveEvent(models.EventMoveMade, move, len(s.history), byAI)); err != nil {
			logger.Log.Warn("Failed to publish move", zap.Error(err))
		}
	}

	payload := &models.MovePayload{
		Column:     column,
		Row:        row,
		Color:      models.ColorOf(p),
		Board:      s.board.Clone(),
		MoveNumber: len(s.history),
		Score:      score,
	}

	if line, won := s.board.LocalWin(row, column); won {
		payload.WinningLine = &line
		return payload, gs.finish(s, models.GameStatusCompleted, p, &line, "win"), nil
	}
	if s.board.IsFull() {
		return payload, gs.finish(s, models.GameStatusDraw, models.Empty, nil, "draw"), nil
	}

	s.turn = p.Opponent()
	payload.NextTurn = models.ColorOf(s.turn)
	return payload, nil, nil
}

func (gs *GameService) finish(s *session, status models.GameStatus, winner models.Cell, line *models.Line, reason string) *models.GameOverPayload {
	now := time.Now()
	s.status = status
	s.winner = winner
	s.line = line
	s.completedAt = &now

	state := s.state()
	canonical := models.CanonicalSignature(s.history, s.board.Cols())
	duration := int(now.Sub(s.startedAt).Seconds())

	if gs.store != nil {
		if err := gs.store.CompleteGame(state, canonical); err != nil {
			logger.Log.Error("Failed to complete game", zap.String("game_id", s.id.String()), zap.Error(err))
		}
	}
	if gs.events != nil {
		event := models.GameCompletedEvent{
			Type:            models.EventGameCompleted,
			GameID:          s.id,
			Status:          status,
			WinningLine:     line,
			Signature:       canonical,
			TotalMoves:      len(s.history),
			DurationSeconds: duration,
			Timestamp:       now,
		}
		if winner.IsPlayer() {
			color := models.ColorOf(winner)
			event.Winner = &color
		}
		if err := gs.events.PublishGameCompleted(event); err != nil {
			logger.Log.Warn("Failed to publish game completed", zap.Error(err))
		}
	}

	logger.Log.Info("Game over",
		zap.String("game_id", s.id.String()),
		zap.String("reason", reason),
		zap.Int("moves", len(s.history)),
		zap.String("signature", canonical),
	)
	return &models.GameOverPayload{
		Winner:      state.Winner,
		Reason:      reason,
		Board:       state.Board,
		WinningLine: line,
		Duration:    duration,
	}
}

func (s *session) isBotTurn() bool {
	return s.mode == models.GameModeAI && s.turn == s.aiColor.Cell()
}

func (s *session) checkBotTurn() error {
	if s.status != models.GameStatusActive {
		return ErrGameNotActive
	}
	if !s.isBotTurn() {
		return ErrNotBotTurn
	}
	return nil
}

func (s *session) moveEvent(t models.KafkaEventType, m models.Move, number int, byAI bool) models.MoveMadeEvent {
	return models.MoveMadeEvent{
		Type:       t,
		GameID:     s.id,
		Player:     models.ColorOf(m.Player),
		Column:     m.Col,
		Row:        m.Row,
		MoveNumber: number,
		ByAI:       byAI,
		Timestamp:  time.Now(),
	}
}

// state snapshots the session. The caller holds s.mu.
func (s *session) state() *models.GameState {
	st := &models.GameState{
		GameID:      s.id,
		Rows:        s.board.Rows(),
		Cols:        s.board.Cols(),
		Board:       s.board.Clone(),
		CurrentTurn: models.ColorOf(s.turn),
		Mode:        s.mode,
		AIColor:     s.aiColor,
		Difficulty:  s.difficulty,
		Status:      s.status,
		WinningLine: s.line,
		MoveCount:   len(s.history),
		CanUndo:     len(s.history) > 0 && s.status != models.GameStatusAbandoned,
		CanRedo:     len(s.redo) > 0 && s.status == models.GameStatusActive,
		Signature:   models.Signature(s.history, s.board.Cols()),
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
	if s.winner.IsPlayer() {
		w := string(models.ColorOf(s.winner))
		st.Winner = &w
	}
	return st
}
