package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
)

const DefaultSweepInterval = time.Second

type gameLister interface {
	ActiveGameIDs(ctx context.Context) ([]string, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
}

type gameTimer interface {
	TimeoutGame(ctx context.Context, gameID string, symbol entity.Symbol) error
}

// ClockWatcher ends live timed games whose player to move has run out of
// time. The timeout itself is decided by the game manager, so a watcher that
// races with a move only produces a rejected timeout.
type ClockWatcher struct {
	logger   *slog.Logger
	games    gameLister
	timer    gameTimer
	interval time.Duration
	now      func() time.Time
}

func NewClockWatcher(logger *slog.Logger, games gameLister, timer gameTimer, interval time.Duration) *ClockWatcher {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &ClockWatcher{
		logger:   logger.With("component", "clock_watcher"),
		games:    games,
		timer:    timer,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps until ctx is done.
func (that *ClockWatcher) Run(ctx context.Context) {
	that.logger.Info("Starting clock watcher", "interval", that.interval)

	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			that.logger.Info("Clock watcher stopped")
			return
		case <-ticker.C:
			if _, err := that.Sweep(ctx); err != nil {
				that.logger.Error("clock sweep failed", "error", err)
			}
		}
	}
}

// Sweep times out every expired game once and returns how many it ended.
func (that *ClockWatcher) Sweep(ctx context.Context) (int, error) {
	ids, err := that.games.ActiveGameIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active games: %w", err)
	}

	expired := 0

	for _, id := range ids {
		game, err := that.games.GetGame(ctx, id)
		if errors.Is(err, repository.ErrGameNotFound) {
			continue
		}
		if err != nil {
			that.logger.Error("failed to load game", "gameID", id, "error", err)
			continue
		}

		if !game.IsLive() || !game.IsTimed() {
			continue
		}

		if tictactoe.RemainingAt(game, game.NextTurn, that.now()) > 0 {
			continue
		}

		err = that.timer.TimeoutGame(ctx, id, game.NextTurn)
		if apperror.IsRejection(err) {
			that.logger.Debug("timeout rejected", "gameID", id, "error", err)
			continue
		}
		if err != nil {
			that.logger.Error("failed to time out game", "gameID", id, "error", err)
			continue
		}

		expired++
	}

	return expired, nil
}
