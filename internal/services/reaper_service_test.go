package services

import (
	"testing"
	"time"

	"connect4engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperEndsIdleGames(t *testing.T) {
	cfg := testConfig()
	cfg.Game.IdleTimeout = 60
	gs := NewGameService(cfg, nil, nil)
	rs := NewReaperService(cfg, gs)

	idle := humanGame(t, gs)
	busy := humanGame(t, gs)
	play(t, gs, busy, 3)

	assert.Zero(t, rs.Reap(time.Now()), "nothing is older than the timeout yet")
	assert.Equal(t, 2, rs.Reap(time.Now().Add(2*time.Minute)))

	_, err := gs.GetGame(idle)
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.Zero(t, gs.ActiveGames())
}

func TestIdleGamesTracksActivity(t *testing.T) {
	gs := NewGameService(testConfig(), nil, nil)
	id := humanGame(t, gs)
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)

	assert.Contains(t, gs.IdleGames(cutoff), id)
	play(t, gs, id, 0)
	assert.NotContains(t, gs.IdleGames(cutoff), id)

	_, err := gs.Undo(id)
	require.NoError(t, err)
	state, err := gs.GetGame(id)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, state.Status)
}
