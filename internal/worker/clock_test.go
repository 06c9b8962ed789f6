package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/usecase"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/testing/suite"
)

var errRedisDown = errors.New("redis down")

type mockGames struct {
	mock.Mock
}

func (that *mockGames) ActiveGameIDs(ctx context.Context) ([]string, error) {
	args := that.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (that *mockGames) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

type mockTimer struct {
	mock.Mock
}

func (that *mockTimer) TimeoutGame(ctx context.Context, gameID string, symbol entity.Symbol) error {
	return that.Called(ctx, gameID, symbol).Error(0)
}

var start = time.UnixMilli(1_700_000_000_000)

func timedGame(id string, timeLimit int) *entity.Game {
	game := tictactoe.NewGame(id, &entity.PlayerProfile{ID: "px"}, timeLimit, start)
	return tictactoe.Join(game, &entity.PlayerProfile{ID: "po"}, start)
}

func newWatcher(games gameLister, timer gameTimer, now time.Time) *ClockWatcher {
	watcher := NewClockWatcher(suite.NewLogger(), games, timer, time.Second)
	watcher.now = func() time.Time { return now }
	return watcher
}

func TestClockWatcher_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("Times out only expired games", func(t *testing.T) {
		// Given: one expired, one running, one untimed and one vanished game
		games := &mockGames{}
		timer := &mockTimer{}

		games.On("ActiveGameIDs", mock.Anything).Return([]string{"expired", "running", "untimed", "gone"}, nil).Once()
		games.On("GetGame", mock.Anything, "expired").Return(timedGame("expired", 10), nil).Once()
		games.On("GetGame", mock.Anything, "running").Return(timedGame("running", 600), nil).Once()
		games.On("GetGame", mock.Anything, "untimed").Return(timedGame("untimed", 0), nil).Once()
		games.On("GetGame", mock.Anything, "gone").Return(nil, repository.ErrGameNotFound).Once()
		timer.On("TimeoutGame", mock.Anything, "expired", entity.SymbolX).Return(nil).Once()

		watcher := newWatcher(games, timer, start.Add(30*time.Second))

		// When: sweeping
		expired, err := watcher.Sweep(ctx)

		// Then: only the expired game was timed out
		require.NoError(t, err)
		assert.Equal(t, 1, expired)
		games.AssertExpectations(t)
		timer.AssertExpectations(t)
	})

	t.Run("Ignores rejected timeouts", func(t *testing.T) {
		// Given: an expired game that someone else finishes first
		games := &mockGames{}
		timer := &mockTimer{}

		games.On("ActiveGameIDs", mock.Anything).Return([]string{"g1"}, nil).Once()
		games.On("GetGame", mock.Anything, "g1").Return(timedGame("g1", 10), nil).Once()
		timer.On("TimeoutGame", mock.Anything, "g1", entity.SymbolX).Return(apperror.ErrNotActive).Once()

		watcher := newWatcher(games, timer, start.Add(time.Minute))

		// When: sweeping
		expired, err := watcher.Sweep(ctx)

		// Then: the sweep succeeds without counting it
		require.NoError(t, err)
		assert.Zero(t, expired)
		timer.AssertExpectations(t)
	})

	t.Run("Returns error when listing fails", func(t *testing.T) {
		// Given: a store that is down
		games := &mockGames{}
		games.On("ActiveGameIDs", mock.Anything).Return(nil, errRedisDown).Once()

		watcher := newWatcher(games, &mockTimer{}, start)

		// When: sweeping
		_, err := watcher.Sweep(ctx)

		// Then: the error is returned
		require.ErrorIs(t, err, errRedisDown)
	})
}

func TestClockWatcher_WithGameManager(t *testing.T) {
	ctx := context.Background()

	// Given: a live game with a ten second clock
	now := start
	store := repository.NewMemoryStore()
	manager := usecase.NewGameManager(suite.NewLogger(), store, usecase.DefaultRules(),
		usecase.WithClock(func() time.Time { return now }))

	gameID, err := manager.CreateGame(ctx, &entity.PlayerProfile{ID: "px"}, 10)
	require.NoError(t, err)
	require.NoError(t, manager.JoinGame(ctx, gameID, &entity.PlayerProfile{ID: "po"}))

	watcher := NewClockWatcher(suite.NewLogger(), store, manager, time.Second)
	watcher.now = func() time.Time { return now }

	// When: sweeping before and after the clock runs out
	expired, err := watcher.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	now = now.Add(11 * time.Second)
	expired, err = watcher.Sweep(ctx)
	require.NoError(t, err)

	// Then: the game was finished on time
	assert.Equal(t, 1, expired)

	game, err := manager.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinished, game.Status)
	assert.Equal(t, entity.WinReasonTimeout, game.WinReason)
}

func TestClockWatcher_Run(t *testing.T) {
	// Given: a watcher over an empty store
	var sweeps atomic.Int32

	games := &mockGames{}
	games.On("ActiveGameIDs", mock.Anything).Return([]string{}, nil).Run(func(mock.Arguments) {
		sweeps.Add(1)
	})

	watcher := NewClockWatcher(suite.NewLogger(), games, &mockTimer{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	// When: it runs for a few ticks and is cancelled
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return sweeps.Load() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	// Then: it stops
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
