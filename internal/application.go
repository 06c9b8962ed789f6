package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/usecase"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/worker"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/rest"
)

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

var (
	ErrAddrNotFound    = errors.New("redis address string is empty")
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrUnknownTiebreak = errors.New("unknown timeout tiebreak")
	ErrNegativeRule    = errors.New("rule value must not be negative")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	rules, err := RulesFromConfig(conf.Rules)
	if err != nil {
		return err
	}

	store, err := OpenStore(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = store.Close(); err != nil {
			log.Error("could not close game store", "error", err)
		}
	}()

	log.Info("Game store ready", "driver", conf.Storage.Driver)

	gameUseCase := usecase.NewGameManager(logger, store, rules)

	watcher := worker.NewClockWatcher(logger, store, gameUseCase, conf.Clock.SweepInterval)
	go watcher.Run(ctx)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, conf.HTTPPort, store).Start(ctx); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// OpenStore connects the game store selected by conf.Storage.Driver.
func OpenStore(ctx context.Context, conf *config.Config) (repository.Store, error) {
	attempts := conf.Storage.MaxTxAttempts
	if attempts <= 0 {
		attempts = repository.DefaultMaxTxAttempts
	}

	switch conf.Storage.Driver {
	case DriverRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if conf.Redis.Host == "" {
			return nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewRedisStore(redisStorage.Connection, attempts), nil

	case DriverSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Connection.Close()
			return nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteStore(sqliteStorage.Connection, attempts), nil

	case DriverMemory:
		return repository.NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, conf.Storage.Driver)
}

// RulesFromConfig copies the configured rules. Zero is a valid setting:
// forfeit-min-cells 0 scores every forfeited live game and
// chat-history-limit 0 keeps the whole chat. Only an unset tiebreak falls
// back to the default.
func RulesFromConfig(conf config.Rules) (usecase.Rules, error) {
	if conf.ForfeitMinCells < 0 {
		return usecase.Rules{}, fmt.Errorf("%w: forfeit-min-cells %d", ErrNegativeRule, conf.ForfeitMinCells)
	}

	if conf.ChatHistoryLimit < 0 {
		return usecase.Rules{}, fmt.Errorf("%w: chat-history-limit %d", ErrNegativeRule, conf.ChatHistoryLimit)
	}

	rules := usecase.Rules{
		ForfeitMinCells:  conf.ForfeitMinCells,
		TimeoutTiebreak:  usecase.DefaultRules().TimeoutTiebreak,
		ChatHistoryLimit: conf.ChatHistoryLimit,
	}

	switch tiebreak := tictactoe.TimeoutTiebreak(conf.TimeoutTiebreak); tiebreak {
	case tictactoe.TiebreakBoards, tictactoe.TiebreakOpponent:
		rules.TimeoutTiebreak = tiebreak
	case "":
	default:
		return usecase.Rules{}, fmt.Errorf("%w: %q", ErrUnknownTiebreak, conf.TimeoutTiebreak)
	}

	return rules, nil
}
