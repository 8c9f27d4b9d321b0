package bot

import (
	"context"
	"errors"
	"time"

	"connect4engine/internal/models"
)

var ErrSearchIncomplete = errors.New("no search depth completed yet")

// Scheduler splits a root search into resumable steps. Each step scores one
// candidate column at the current depth; once every candidate has a score the
// depth grows by one, up to maxDepth (iterative deepening). Control returns to
// the caller between steps, so stopping is simply not calling Step again.
//
// The board must not be modified by anyone else while the scheduler is in use.
type Scheduler struct {
	engine   *Engine
	board    *models.Board
	searcher models.Cell
	maxDepth int

	columns []int
	depth   int
	next    int
	done    bool

	scores    []int
	evaluated []bool

	completedDepth  int
	completedScores []int
}

// Progress is a snapshot of a running Scheduler.
type Progress struct {
	Depth          int           `json:"depth"`
	MaxDepth       int           `json:"max_depth"`
	CompletedDepth int           `json:"completed_depth"`
	Scores         []ColumnScore `json:"scores"`
	Done           bool          `json:"done"`
}

// NewScheduler prepares an incremental search. A maxDepth below 1 is raised
// to 1, which evaluates the same leaves as a blocking search at depth 0.
func (e *Engine) NewScheduler(b *models.Board, searcher models.Cell, maxDepth int) (*Scheduler, error) {
	if err := e.check(b, searcher); err != nil {
		return nil, err
	}
	columns := OrderedMoves(b, searcher, true)
	if len(columns) == 0 {
		return nil, ErrNoLegalMove
	}
	return &Scheduler{
		engine:    e,
		board:     b,
		searcher:  searcher,
		maxDepth:  max(1, maxDepth),
		columns:   columns,
		depth:     1,
		scores:    make([]int, b.Cols()),
		evaluated: make([]bool, b.Cols()),
	}, nil
}

// Step scores the next candidate column and reports whether the search has
// reached maxDepth for every candidate.
func (s *Scheduler) Step() (bool, error) {
	return s.StepContext(context.Background())
}

// StepContext is Step that abandons the column with ctx.Err() once ctx is
// done. The column stays pending, so stepping can resume later.
func (s *Scheduler) StepContext(ctx context.Context) (bool, error) {
	if s.done {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	start := time.Now()
	before := s.engine.stats

	s.engine.watch(ctx)
	col := s.columns[s.next]
	score, err := s.engine.scoreColumn(s.board, col, s.searcher, s.depth)
	if err == nil {
		err = s.engine.interrupted()
	}
	s.engine.unwatch()
	s.engine.flushMetrics(before)
	if err != nil {
		return false, err
	}
	searchDuration.Observe(time.Since(start).Seconds())

	s.scores[col] = score
	s.evaluated[col] = true
	s.next++
	if s.next < len(s.columns) {
		return false, nil
	}

	s.completedDepth = s.depth
	s.completedScores = append(s.completedScores[:0], s.scores...)
	if s.depth >= s.maxDepth {
		s.done = true
		return true, nil
	}
	s.depth++
	s.next = 0
	return false, nil
}

func (s *Scheduler) Done() bool {
	return s.done
}

func (s *Scheduler) Progress() Progress {
	p := Progress{
		Depth:          s.depth,
		MaxDepth:       s.maxDepth,
		CompletedDepth: s.completedDepth,
		Done:           s.done,
	}
	for col, ok := range s.evaluated {
		if ok {
			p.Scores = append(p.Scores, ColumnScore{Column: col, Score: s.scores[col]})
		}
	}
	return p
}

// Result picks the best column from the deepest completed depth. Equal scores
// go to the column nearest the centre, then the lower column.
func (s *Scheduler) Result() (Result, error) {
	if s.completedDepth == 0 {
		return Result{}, ErrSearchIncomplete
	}
	center := s.board.Center()
	res := Result{Column: -1, Depth: s.completedDepth, Scores: make([]ColumnScore, 0, len(s.columns))}
	for _, col := range s.columns {
		score := s.completedScores[col]
		res.Scores = append(res.Scores, ColumnScore{Column: col, Score: score})
		if res.Column < 0 || score > res.Score {
			res.Column, res.Score = col, score
			continue
		}
		if score == res.Score {
			d, best := abs(col-center), abs(res.Column-center)
			if d < best || (d == best && col < res.Column) {
				res.Column = col
			}
		}
	}
	return res, nil
}

// Run steps the scheduler until it finishes or ctx is cancelled, calling
// onStep after every step.
func (s *Scheduler) Run(ctx context.Context, onStep func(Progress)) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		done, err := s.StepContext(ctx)
		if err != nil {
			return Result{}, err
		}
		if onStep != nil {
			onStep(s.Progress())
		}
		if done {
			return s.Result()
		}
	}
}
