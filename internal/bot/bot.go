package bot

import (
	"context"
	"errors"
	"time"

	"connect4engine/internal/models"
	"connect4engine/pkg/logger"

	"go.uber.org/zap"
)

// WinScore is the base score of a decided position. The remaining depth is
// added on top so that faster wins and slower losses are preferred.
const WinScore = 10_000_000

const infinity = 1 << 40

// cancelCheckInterval is how many nodes pass between context checks.
const cancelCheckInterval = 1024

var (
	ErrNoLegalMove       = errors.New("no legal move")
	ErrDimensionMismatch = errors.New("board dimensions do not match engine")
)

// Engine runs depth-limited minimax with alpha-beta pruning over boards of
// one fixed size. It owns a transposition cache and scratch buffers and is
// not safe for concurrent use: use one Engine per game.
type Engine struct {
	rows  int
	cols  int
	cache *Cache
	key   []byte
	stats Stats

	// ctx is only set while a cancellable search runs. Once it is done,
	// stopped unwinds the search and nothing more is cached.
	ctx     context.Context
	stopped bool
}

type Stats struct {
	Nodes       int64
	CacheHits   int64
	CacheMisses int64
}

type ColumnScore struct {
	Column int `json:"column"`
	Score  int `json:"score"`
}

// Result is the outcome of a root search. Scores are listed in the order the
// columns were searched.
type Result struct {
	Column int           `json:"column"`
	Score  int           `json:"score"`
	Depth  int           `json:"depth"`
	Scores []ColumnScore `json:"scores"`
}

func NewEngine(rows, cols int) (*Engine, error) {
	if !models.ValidDimensions(rows, cols) {
		return nil, models.ErrInvalidDimensions
	}
	return &Engine{
		rows:  rows,
		cols:  cols,
		cache: NewCache(),
		key:   make([]byte, 0, rows*cols+2),
	}, nil
}

// Reset changes the board size and drops every cached entry.
func (e *Engine) Reset(rows, cols int) error {
	if !models.ValidDimensions(rows, cols) {
		return models.ErrInvalidDimensions
	}
	e.rows, e.cols = rows, cols
	e.key = make([]byte, 0, rows*cols+2)
	e.ClearCache()
	return nil
}

func (e *Engine) ClearCache() {
	e.cache.Clear()
}

func (e *Engine) CacheSize() int {
	return e.cache.Len()
}

func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) Rows() int { return e.rows }
func (e *Engine) Cols() int { return e.cols }

func (e *Engine) check(b *models.Board, searcher models.Cell) error {
	if b.Rows() != e.rows || b.Cols() != e.cols {
		return ErrDimensionMismatch
	}
	if !searcher.IsPlayer() {
		return models.ErrInvalidPlayer
	}
	return nil
}

// Search returns the minimax value of b for searcher at the given depth.
// The board is left exactly as it was received.
func (e *Engine) Search(b *models.Board, depth, alpha, beta int, maximizing bool, searcher models.Cell) (int, error) {
	if err := e.check(b, searcher); err != nil {
		return 0, err
	}
	before := e.stats
	score := e.search(b, depth, alpha, beta, maximizing, searcher)
	e.flushMetrics(before)
	return score, nil
}

// BestMove returns the column searcher should play.
func (e *Engine) BestMove(b *models.Board, searcher models.Cell, depth int) (int, error) {
	res, err := e.Analyze(b, searcher, depth)
	if err != nil {
		return -1, err
	}
	return res.Column, nil
}

// Analyze searches every legal root column with a full window and returns the
// column with the strictly greatest score, the first in move order winning ties.
func (e *Engine) Analyze(b *models.Board, searcher models.Cell, depth int) (Result, error) {
	return e.AnalyzeContext(context.Background(), b, searcher, depth)
}

// AnalyzeContext is Analyze that gives up with ctx.Err() once ctx is done.
// The board is restored and the cache keeps only fully searched nodes.
func (e *Engine) AnalyzeContext(ctx context.Context, b *models.Board, searcher models.Cell, depth int) (Result, error) {
	if err := e.check(b, searcher); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	e.watch(ctx)
	defer e.unwatch()

	columns := OrderedMoves(b, searcher, true)
	if len(columns) == 0 {
		return Result{}, ErrNoLegalMove
	}

	start := time.Now()
	before := e.stats
	res := Result{Column: -1, Depth: depth, Scores: make([]ColumnScore, 0, len(columns))}
	for _, col := range columns {
		score, err := e.scoreColumn(b, col, searcher, depth)
		if err == nil {
			err = e.interrupted()
		}
		if err != nil {
			e.flushMetrics(before)
			return Result{}, err
		}
		res.Scores = append(res.Scores, ColumnScore{Column: col, Score: score})
		if res.Column < 0 || score > res.Score {
			res.Column, res.Score = col, score
		}
	}
	if res.Column < 0 {
		res.Column = b.ValidColumns()[0]
	}

	elapsed := time.Since(start)
	e.flushMetrics(before)
	searchDuration.Observe(elapsed.Seconds())
	logger.Log.Debug("Root search finished",
		zap.Int("depth", depth),
		zap.String("searcher", searcher.String()),
		zap.Int("column", res.Column),
		zap.Int("score", res.Score),
		zap.Int64("nodes", e.stats.Nodes-before.Nodes),
		zap.Int64("cache_hits", e.stats.CacheHits-before.CacheHits),
		zap.Int("cache_size", e.cache.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

// scoreColumn plays searcher's piece in col and searches the reply.
func (e *Engine) scoreColumn(b *models.Board, col int, searcher models.Cell, depth int) (int, error) {
	row, err := b.Drop(col, searcher)
	if err != nil {
		return 0, err
	}
	defer b.Remove(row, col)
	return e.search(b, depth-1, -infinity, infinity, false, searcher), nil
}

func (e *Engine) search(b *models.Board, depth, alpha, beta int, maximizing bool, searcher models.Cell) int {
	e.stats.Nodes++
	if e.cancelled() {
		return 0
	}

	switch b.Winner() {
	case searcher:
		return WinScore + depth
	case searcher.Opponent():
		return -WinScore - depth
	}
	if depth <= 0 || b.IsFull() {
		return Evaluate(b, searcher)
	}

	alphaOrig, betaOrig := alpha, beta
	e.key = appendKey(e.key[:0], b, searcher, maximizing)
	if entry, ok := e.cache.Probe(e.key, depth); ok {
		e.stats.CacheHits++
		switch entry.Bound {
		case BoundExact:
			return entry.Score
		case BoundLower:
			alpha = max(alpha, entry.Score)
		case BoundUpper:
			beta = min(beta, entry.Score)
		}
		if alpha >= beta {
			return entry.Score
		}
	} else {
		e.stats.CacheMisses++
	}

	mover := searcher
	value := -infinity
	if !maximizing {
		mover = searcher.Opponent()
		value = infinity
	}
	for _, col := range OrderedMoves(b, searcher, maximizing) {
		score, err := e.child(b, col, mover, depth-1, alpha, beta, !maximizing, searcher)
		if err != nil {
			continue
		}
		if maximizing {
			value = max(value, score)
			alpha = max(alpha, value)
		} else {
			value = min(value, score)
			beta = min(beta, value)
		}
		if alpha >= beta {
			break
		}
	}

	if e.stopped {
		return value
	}
	bound := BoundExact
	switch {
	case value <= alphaOrig:
		bound = BoundUpper
	case value >= betaOrig:
		bound = BoundLower
	}
	e.key = appendKey(e.key[:0], b, searcher, maximizing)
	e.cache.Store(e.key, Entry{Depth: depth, Score: value, Bound: bound})
	return value
}

// child places mover's piece in col, searches the resulting position and
// removes the piece on every exit path.
func (e *Engine) child(b *models.Board, col int, mover models.Cell, depth, alpha, beta int, maximizing bool, searcher models.Cell) (int, error) {
	row, err := b.Drop(col, mover)
	if err != nil {
		return 0, err
	}
	defer b.Remove(row, col)
	return e.search(b, depth, alpha, beta, maximizing, searcher), nil
}

func (e *Engine) watch(ctx context.Context) {
	e.ctx, e.stopped = ctx, false
}

func (e *Engine) unwatch() {
	e.ctx, e.stopped = nil, false
}

func (e *Engine) cancelled() bool {
	if !e.stopped && e.ctx != nil && e.stats.Nodes%cancelCheckInterval == 0 && e.ctx.Err() != nil {
		e.stopped = true
	}
	return e.stopped
}

// interrupted returns the context error once a watched search has stopped.
func (e *Engine) interrupted() error {
	if e.stopped && e.ctx != nil {
		return e.ctx.Err()
	}
	return nil
}

func (e *Engine) flushMetrics(before Stats) {
	searchNodes.Add(float64(e.stats.Nodes - before.Nodes))
	cacheProbes.WithLabelValues("hit").Add(float64(e.stats.CacheHits - before.CacheHits))
	cacheProbes.WithLabelValues("miss").Add(float64(e.stats.CacheMisses - before.CacheMisses))
}
