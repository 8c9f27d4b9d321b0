package services

import (
	"context"
	"testing"
	"time"

	"connect4engine/internal/config"
	"connect4engine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created   []uuid.UUID
	moves     map[int]models.Move
	boards    map[int]string
	completed []string
	reopened  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{moves: map[int]models.Move{}, boards: map[int]string{}}
}

func (f *fakeStore) CreateGame(game *models.GameState) error {
	f.created = append(f.created, game.GameID)
	return nil
}

func (f *fakeStore) SaveMove(_ uuid.UUID, n int, m models.Move, b *models.Board) error {
	f.moves[n] = m
	f.boards[n] = b.String()
	return nil
}

func (f *fakeStore) DeleteMove(_ uuid.UUID, n int) error {
	delete(f.moves, n)
	delete(f.boards, n)
	return nil
}

func (f *fakeStore) CompleteGame(_ *models.GameState, canonical string) error {
	f.completed = append(f.completed, canonical)
	return nil
}

func (f *fakeStore) ReopenGame(uuid.UUID) error {
	f.reopened++
	return nil
}

type fakePublisher struct {
	types     []models.KafkaEventType
	completed []models.GameCompletedEvent
}

func (f *fakePublisher) PublishGameStarted(e models.GameStartedEvent) error {
	f.types = append(f.types, e.Type)
	return nil
}

func (f *fakePublisher) PublishMoveMade(e models.MoveMadeEvent) error {
	f.types = append(f.types, e.Type)
	return nil
}

func (f *fakePublisher) PublishMoveUndone(e models.MoveMadeEvent) error {
	f.types = append(f.types, e.Type)
	return nil
}

func (f *fakePublisher) PublishGameCompleted(e models.GameCompletedEvent) error {
	f.types = append(f.types, e.Type)
	f.completed = append(f.completed, e)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Board: config.BoardConfig{Rows: 6, Cols: 7},
		AI: config.AIConfig{
			DepthEasy:   2,
			DepthMedium: 3,
			DepthHard:   4,
			MaxDepth:    6,
			Player:      models.ColorYellow,
		},
	}
}

func newTestService(t *testing.T) (*GameService, *fakeStore, *fakePublisher) {
	t.Helper()
	store, pub := newFakeStore(), &fakePublisher{}
	return NewGameService(testConfig(), store, pub), store, pub
}

func humanGame(t *testing.T, gs *GameService) uuid.UUID {
	t.Helper()
	state, err := gs.CreateGame(models.CreateGamePayload{Mode: models.GameModeHuman})
	require.NoError(t, err)
	return state.GameID
}

func play(t *testing.T, gs *GameService, id uuid.UUID, cols ...int) (*models.MovePayload, *models.GameOverPayload) {
	t.Helper()
	var (
		move *models.MovePayload
		over *models.GameOverPayload
		err  error
	)
	for _, col := range cols {
		move, over, err = gs.MakeMove(id, col)
		require.NoError(t, err, "column %d", col)
	}
	return move, over
}

func TestCreateGameDefaults(t *testing.T) {
	gs, store, pub := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{})
	require.NoError(t, err)

	assert.Equal(t, 6, state.Rows)
	assert.Equal(t, 7, state.Cols)
	assert.Equal(t, models.GameModeAI, state.Mode)
	assert.Equal(t, models.ColorYellow, state.AIColor)
	assert.Equal(t, models.DifficultyMedium, state.Difficulty)
	assert.Equal(t, models.ColorRed, state.CurrentTurn)
	assert.Equal(t, models.GameStatusActive, state.Status)
	assert.Equal(t, []uuid.UUID{state.GameID}, store.created)
	assert.Equal(t, []models.KafkaEventType{models.EventGameStarted}, pub.types)
	assert.Equal(t, 1, gs.ActiveGames())

	_, err = gs.CreateGame(models.CreateGamePayload{Rows: 3})
	assert.ErrorIs(t, err, models.ErrInvalidDimensions)
}

func TestMoveValidation(t *testing.T) {
	gs, _, _ := newTestService(t)
	id := humanGame(t, gs)

	_, _, err := gs.MakeMove(id, 7)
	assert.ErrorIs(t, err, models.ErrInvalidColumn)
	_, _, err = gs.MakeMove(id, -1)
	assert.ErrorIs(t, err, models.ErrInvalidColumn)

	play(t, gs, id, 2, 2, 2, 2, 2, 2)
	_, _, err = gs.MakeMove(id, 2)
	assert.ErrorIs(t, err, models.ErrColumnFull)

	_, _, err = gs.MakeMove(uuid.New(), 0)
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, _, err = gs.MakeBotMove(id)
	assert.ErrorIs(t, err, ErrNotBotTurn)
}

func TestWinEndsGame(t *testing.T) {
	gs, store, pub := newTestService(t)
	id := humanGame(t, gs)

	move, over := play(t, gs, id, 6, 5, 6, 5, 6, 5, 6)
	require.NotNil(t, over)
	assert.Equal(t, "win", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, "red", *over.Winner)
	require.NotNil(t, move.WinningLine)
	assert.Equal(t, models.Line{{Row: 2, Col: 6}, {Row: 3, Col: 6}, {Row: 4, Col: 6}, {Row: 5, Col: 6}}, *move.WinningLine)

	state, err := gs.GetGame(id)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCompleted, state.Status)
	assert.Equal(t, "7676767", state.Signature)
	assert.Equal(t, []string{"1212121"}, store.completed, "canonical signature is the smaller mirror")
	require.Len(t, pub.completed, 1)
	assert.Equal(t, models.ColorRed, *pub.completed[0].Winner)
	assert.Equal(t, 7, pub.completed[0].TotalMoves)

	_, _, err = gs.MakeMove(id, 0)
	assert.ErrorIs(t, err, ErrGameNotActive)
}

func TestDrawOnFullBoard(t *testing.T) {
	gs, _, _ := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{Rows: 4, Cols: 4, Mode: models.GameModeHuman})
	require.NoError(t, err)

	// Fills rows bottom up so the board reads RRYY / YYRR / RRYY / YYRR from the top.
	_, over := play(t, gs, state.GameID,
		2, 0, 3, 1, 0, 2, 1, 3,
		2, 0, 3, 1, 0, 2, 1, 3,
	)
	require.NotNil(t, over)
	assert.Equal(t, "draw", over.Reason)
	assert.Nil(t, over.Winner)
}

func TestUndoRedo(t *testing.T) {
	gs, store, pub := newTestService(t)
	id := humanGame(t, gs)

	_, err := gs.Undo(id)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	play(t, gs, id, 3, 3)
	state, err := gs.Undo(id)
	require.NoError(t, err)
	assert.Equal(t, 1, state.MoveCount)
	assert.Equal(t, models.ColorYellow, state.CurrentTurn)
	assert.Equal(t, models.Empty, state.Board.At(4, 3))
	assert.True(t, state.CanRedo)
	assert.Len(t, store.moves, 1)
	assert.Contains(t, pub.types, models.EventMoveUndone)

	move, over, err := gs.Redo(id)
	require.NoError(t, err)
	assert.Nil(t, over)
	assert.Equal(t, 3, move.Column)
	assert.Equal(t, 4, move.Row)
	assert.Equal(t, models.ColorYellow, move.Color)

	_, _, err = gs.Redo(id)
	assert.ErrorIs(t, err, ErrNothingToRedo)

	_, err = gs.Undo(id)
	require.NoError(t, err)
	play(t, gs, id, 0)
	_, _, err = gs.Redo(id)
	assert.ErrorIs(t, err, ErrNothingToRedo, "a new move clears the redo stack")
}

func TestUndoReopensFinishedGame(t *testing.T) {
	gs, store, _ := newTestService(t)
	id := humanGame(t, gs)
	_, over := play(t, gs, id, 0, 1, 0, 1, 0, 1, 0)
	require.NotNil(t, over)

	state, err := gs.Undo(id)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, state.Status)
	assert.Nil(t, state.Winner)
	assert.Nil(t, state.WinningLine)
	assert.Equal(t, 1, store.reopened)

	_, over, err = gs.Redo(id)
	require.NoError(t, err)
	require.NotNil(t, over)
	assert.Equal(t, "win", over.Reason)
}

func TestBotMoveTakesTurns(t *testing.T) {
	gs, _, pub := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	id := state.GameID

	_, _, err = gs.MakeBotMove(id)
	assert.ErrorIs(t, err, ErrNotBotTurn)

	play(t, gs, id, 3)
	_, _, err = gs.MakeMove(id, 3)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	move, over, err := gs.MakeBotMove(id)
	require.NoError(t, err)
	assert.Nil(t, over)
	assert.Equal(t, models.ColorYellow, move.Color)
	assert.Equal(t, models.ColorRed, move.NextTurn)
	require.NotNil(t, move.Score)
	assert.Equal(t, models.EventMoveMade, pub.types[len(pub.types)-1])
}

func TestStreamBotMoveMatchesBlockingMove(t *testing.T) {
	gs, _, _ := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{
		Difficulty:     models.DifficultyEasy,
		StartingPlayer: models.ColorYellow,
	})
	require.NoError(t, err)

	var progress []models.AnalysisProgressPayload
	move, over, err := gs.StreamBotMove(context.Background(), state.GameID, func(p models.AnalysisProgressPayload) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Nil(t, over)
	assert.Len(t, progress, 2*7, "one report per column per depth")
	last := progress[len(progress)-1]
	assert.Equal(t, 2, last.Depth)
	for col, score := range last.Scores {
		assert.NotNil(t, score, "column %d", col)
	}

	blocking, err := gs.Analyze(context.Background(), mustEmptyBoard(t), models.ColorYellow, 2)
	require.NoError(t, err)
	assert.Equal(t, blocking.Column, move.Column)
	assert.Equal(t, blocking.Score, *move.Score)
}

func TestStreamBotMoveAbortsWhenGameChanges(t *testing.T) {
	gs, _, _ := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	id := state.GameID
	play(t, gs, id, 3)

	calls := 0
	_, _, err = gs.StreamBotMove(context.Background(), id, func(models.AnalysisProgressPayload) {
		calls++
		if calls == 1 {
			_, err := gs.Undo(id)
			require.NoError(t, err)
		}
	})
	assert.ErrorIs(t, err, ErrStaleAnalysis)
	assert.Equal(t, 1, calls)

	after, err := gs.GetGame(id)
	require.NoError(t, err)
	assert.Zero(t, after.MoveCount)
	assert.Equal(t, models.ColorRed, after.CurrentTurn)
}

func TestStreamBotMoveHonoursContext(t *testing.T) {
	gs, _, _ := newTestService(t)
	state, err := gs.CreateGame(models.CreateGamePayload{StartingPlayer: models.ColorYellow})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, err = gs.StreamBotMove(ctx, state.GameID, func(models.AnalysisProgressPayload) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)

	after, err := gs.GetGame(state.GameID)
	require.NoError(t, err)
	assert.Zero(t, after.MoveCount)

	move, _, err := gs.StreamBotMove(context.Background(), state.GameID, nil)
	require.NoError(t, err, "a cancelled stream must not leave the session busy")
	assert.Equal(t, 1, move.MoveNumber)
}

func TestEndGame(t *testing.T) {
	gs, store, pub := newTestService(t)
	id := humanGame(t, gs)
	play(t, gs, id, 3)

	require.NoError(t, gs.EndGame(id))
	_, err := gs.GetGame(id)
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorIs(t, gs.EndGame(id), ErrGameNotFound)
	assert.Equal(t, []string{"4"}, store.completed)
	require.Len(t, pub.completed, 1)
	assert.Equal(t, models.GameStatusAbandoned, pub.completed[0].Status)
	assert.Nil(t, pub.completed[0].Winner)
}

func TestAnalyzeFindsImmediateWin(t *testing.T) {
	gs, _, _ := newTestService(t)
	b := mustEmptyBoard(t)
	for _, col := range []int{4, 4, 4} {
		_, err := b.Drop(col, models.Yellow)
		require.NoError(t, err)
	}
	res, err := gs.Analyze(context.Background(), b, models.ColorYellow, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Column)
	require.NotNil(t, res.Scores[4])
	assert.Equal(t, res.Score, *res.Scores[4])

	_, err = gs.Analyze(context.Background(), b, models.PlayerColor("green"), 3)
	assert.ErrorIs(t, err, models.ErrInvalidPlayer)
}

type fakeResultCache struct {
	entries map[string]string
	gets    int
	sets    int
	ttl     time.Duration
}

func (f *fakeResultCache) Get(_ context.Context, key string) (string, bool, error) {
	f.gets++
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeResultCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	f.sets++
	f.ttl = ttl
	f.entries[key] = value
	return nil
}

func TestAnalyzeUsesResultCache(t *testing.T) {
	gs, _, _ := newTestService(t)
	rc := &fakeResultCache{entries: map[string]string{}}
	gs.SetResultCache(rc, time.Hour)

	b := mustEmptyBoard(t)
	_, err := b.Drop(3, models.Red)
	require.NoError(t, err)

	first, err := gs.Analyze(context.Background(), b, models.ColorYellow, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.sets)
	assert.Equal(t, time.Hour, rc.ttl)

	second, err := gs.Analyze(context.Background(), b, models.ColorYellow, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.sets, "a hit is not stored again")
	assert.Equal(t, first, second)

	// Depth above the cap shares the capped entry.
	_, err = gs.Analyze(context.Background(), b, models.ColorYellow, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, rc.sets)
	_, err = gs.Analyze(context.Background(), b, models.ColorYellow, testConfig().AI.MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, 2, rc.sets)

	for key := range rc.entries {
		rc.entries[key] = "not json"
	}
	third, err := gs.Analyze(context.Background(), b, models.ColorYellow, 3)
	require.NoError(t, err)
	assert.Equal(t, first, third, "unreadable entries are recomputed")
}

func TestAnalyzeHonoursDeadline(t *testing.T) {
	gs, _, _ := newTestService(t)
	rc := &fakeResultCache{entries: map[string]string{}}
	gs.SetResultCache(rc, time.Hour)
	b, err := models.NewBoard(models.MaxSize, models.MaxSize)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = gs.Analyze(ctx, b, models.ColorRed, testConfig().AI.MaxDepth)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, rc.sets, "an abandoned search is not cached")
}

func TestAnalyzeAppliesConfiguredTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.AI.AnalyzeTimeout = 1
	gs := NewGameService(cfg, nil, nil)
	b, err := models.NewBoard(models.MaxSize, models.MaxSize)
	require.NoError(t, err)

	start := time.Now()
	_, err = gs.Analyze(context.Background(), b, models.ColorRed, cfg.AI.MaxDepth)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestServiceWorksWithoutSideEffects(t *testing.T) {
	gs := NewGameService(testConfig(), nil, nil)
	id := humanGame(t, gs)
	_, over := play(t, gs, id, 0, 1, 0, 1, 0, 1, 0)
	require.NotNil(t, over)
	require.NoError(t, gs.EndGame(id))
}

func mustEmptyBoard(t *testing.T) *models.Board {
	t.Helper()
	b, err := models.NewBoard(6, 7)
	require.NoError(t, err)
	return b
}
