package bot

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"connect4engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerMatchesBlockingSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	checked := 0
	for i := 0; i < 30 && checked < 12; i++ {
		b, toMove := randomPosition(t, rng, 6, 7, rng.Intn(16))
		if b.Winner() != models.Empty || b.IsFull() {
			continue
		}
		checked++
		for _, depth := range []int{1, 3, 4} {
			want, err := newEngine(t, 6, 7).Analyze(b, toMove, depth)
			require.NoError(t, err)

			s, err := newEngine(t, 6, 7).NewScheduler(b, toMove, depth)
			require.NoError(t, err)
			got, err := s.Run(context.Background(), nil)
			require.NoError(t, err)

			assert.Equal(t, want.Column, got.Column, "depth %d\n%s", depth, b)
			assert.Equal(t, want.Score, got.Score, "depth %d\n%s", depth, b)
			assert.Equal(t, depth, got.Depth)
		}
	}
}

func TestSchedulerStepsOneColumnAtATime(t *testing.T) {
	b := grid(t,
		"....",
		"....",
		"....",
		"R..Y",
	)
	before := b.Clone()
	s, err := newEngine(t, 4, 4).NewScheduler(b, models.Red, 3)
	require.NoError(t, err)

	_, err = s.Result()
	assert.ErrorIs(t, err, ErrSearchIncomplete)

	steps := 0
	var last Progress
	for {
		done, err := s.Step()
		require.NoError(t, err)
		steps++
		p := s.Progress()
		assert.GreaterOrEqual(t, p.Depth, last.Depth)
		if p.Depth == 1 && !done {
			assert.Len(t, p.Scores, steps, "first depth fills one column per step")
		}
		last = p
		if done {
			break
		}
	}
	assert.Equal(t, 3*4, steps)
	assert.True(t, s.Done())
	assert.Equal(t, 3, last.CompletedDepth)
	assert.Len(t, last.Scores, 4)
	assert.True(t, before.Equal(b))

	done, err := s.Step()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSchedulerResultUsesDeepestCompletedDepth(t *testing.T) {
	b, err := models.NewBoard(6, 7)
	require.NoError(t, err)
	s, err := newEngine(t, 6, 7).NewScheduler(b, models.Red, 3)
	require.NoError(t, err)

	for i := 0; i < 7+2; i++ {
		_, err := s.Step()
		require.NoError(t, err)
	}
	res, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Depth)
	assert.Equal(t, 3, res.Column)
}

func TestSchedulerTieBreaksTowardCentre(t *testing.T) {
	s := &Scheduler{
		board:           mustBoard(t, 6, 7),
		columns:         []int{0, 6, 2, 4},
		completedDepth:  1,
		completedScores: []int{5, 0, 5, 0, 5, 0, 5},
	}
	res, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Column)
	assert.Equal(t, 5, res.Score)
}

func TestSchedulerRunStopsWhenCancelled(t *testing.T) {
	b, err := models.NewBoard(6, 7)
	require.NoError(t, err)
	s, err := newEngine(t, 6, 7).NewScheduler(b, models.Yellow, 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err = s.Run(ctx, func(p Progress) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
	assert.False(t, s.Done())
	assert.Len(t, s.Progress().Scores, 3)
}

func TestSchedulerClampsDepth(t *testing.T) {
	b, err := models.NewBoard(5, 5)
	require.NoError(t, err)
	s, err := newEngine(t, 5, 5).NewScheduler(b, models.Red, 0)
	require.NoError(t, err)
	res, err := s.Run(context.Background(), nil)
	require.NoError(t, err)

	blocking, err := newEngine(t, 5, 5).BestMove(b, models.Red, 0)
	require.NoError(t, err)
	assert.Equal(t, blocking, res.Column)
}

func TestSchedulerRunStopsInsideALongStep(t *testing.T) {
	b := mustBoard(t, models.MaxSize, models.MaxSize)
	s, err := newEngine(t, models.MaxSize, models.MaxSize).NewScheduler(b, models.Red, 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = s.Run(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, s.Done())
	assert.Zero(t, b.Count(models.Red)+b.Count(models.Yellow), "board restored")

	res, err := s.Result()
	require.NoError(t, err, "shallow depths finish well inside the deadline")
	assert.Positive(t, res.Depth)
}

func TestStepContextLeavesColumnPending(t *testing.T) {
	b := mustBoard(t, 6, 7)
	s, err := newEngine(t, 6, 7).NewScheduler(b, models.Yellow, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.StepContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Progress().Scores)

	done, err := s.StepContext(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, s.Progress().Scores, 1)
}

func mustBoard(t *testing.T, rows, cols int) *models.Board {
	t.Helper()
	b, err := models.NewBoard(rows, cols)
	require.NoError(t, err)
	return b
}
