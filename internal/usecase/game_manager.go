package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
)

var ErrPlayerRequired = errors.New("player id is required")

type Option func(*GameManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(that *GameManager) {
		that.now = now
	}
}

// WithIDGenerator replaces the uuid game id generator.
func WithIDGenerator(newID func() string) Option {
	return func(that *GameManager) {
		that.newID = newID
	}
}

// WithSeatShuffle decides whether a rematch swaps X and O.
func WithSeatShuffle(swap func() bool) Option {
	return func(that *GameManager) {
		that.swapSeats = swap
	}
}

type GameManager struct {
	logger *slog.Logger
	store  repository.Store
	rules  Rules

	now       func() time.Time
	newID     func() string
	swapSeats func() bool
}

func NewGameManager(logger *slog.Logger, store repository.Store, rules Rules, opts ...Option) *GameManager {
	manager := &GameManager{
		logger: logger.With("component", "game_manager"),
		store:  store,
		rules:  rules,

		now:       time.Now,
		newID:     uuid.NewString,
		swapSeats: func() bool { return rand.IntN(2) == 1 },
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// CreateGame opens a waiting game with creator as X. The creator's other
// waiting games are deleted and their live games are lost.
func (that *GameManager) CreateGame(ctx context.Context, creator *entity.PlayerProfile, timeLimit int) (string, error) {
	log := that.logger.With("method", "CreateGame")

	if creator == nil || creator.ID == "" {
		return "", ErrPlayerRequired
	}

	var gameID string

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := that.now()
		gameID = that.newID()

		if err := that.leaveActiveGames(ctx, tx, creator.ID, now); err != nil {
			return err
		}

		return tx.SetGame(ctx, tictactoe.NewGame(gameID, creator, max(timeLimit, 0), now))
	})
	if err != nil {
		log.Error("failed to create game", "playerID", creator.ID, "error", err)
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	log.Info("game created", "gameID", gameID, "playerID", creator.ID, "timeLimit", timeLimit)

	return gameID, nil
}

// JoinGame seats player as O in a waiting game and starts it.
func (that *GameManager) JoinGame(ctx context.Context, gameID string, player *entity.PlayerProfile) error {
	log := that.logger.With("method", "JoinGame", "gameID", gameID)

	if player == nil || player.ID == "" {
		return ErrPlayerRequired
	}

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := that.now()

		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrNotAvailable
		}
		if err != nil {
			return err
		}

		if !game.IsWaiting() {
			return apperror.ErrNotAvailable
		}

		if game.HasPlayer(player.ID) {
			return apperror.ErrCannotJoinOwnGame
		}

		if err = that.leaveActiveGames(ctx, tx, player.ID, now); err != nil {
			return err
		}

		return tx.SetGame(ctx, tictactoe.Join(game, player, now))
	})
	if err != nil {
		return that.fail(log, "failed to join game", err, "playerID", player.ID)
	}

	log.Info("game joined", "playerID", player.ID, "status", entity.StatusLive)

	return nil
}

// MakeMove validates move against the stored game and applies it. When the
// move decides the game the winner and loser records are updated in the same
// transaction; a missing record fails the whole move.
func (that *GameManager) MakeMove(ctx context.Context, gameID, playerID string, move entity.Move) (*entity.Game, error) {
	log := that.logger.With("method", "MakeMove", "gameID", gameID, "playerID", playerID)

	var next *entity.Game

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrNotActive
		}
		if err != nil {
			return err
		}

		if err = tictactoe.ValidateMove(game, move, playerID); err != nil {
			return err
		}

		next = tictactoe.ApplyMove(game, move, that.now())

		if next.IsFinished() {
			if err = that.recordResult(ctx, tx, next, true); err != nil {
				return err
			}
		}

		return tx.SetGame(ctx, next)
	})
	if err != nil {
		return nil, that.fail(log, "failed to make move", err,
			"board", move.LocalBoardIndex, "cell", move.CellIndex)
	}

	if next.IsFinished() {
		log.Info("game finished", "status", next.Status, "winner", next.Winner, "reason", next.WinReason)
	} else {
		log.Debug("move applied", "board", move.LocalBoardIndex, "cell", move.CellIndex, "nextTurn", next.NextTurn)
	}

	return next, nil
}

// ForfeitGame ends playerID's participation. Waiting games and live games
// with fewer than Rules.ForfeitMinCells placed cells are deleted unscored.
// Forfeiting a finished or missing game does nothing.
func (that *GameManager) ForfeitGame(ctx context.Context, gameID, playerID string) error {
	log := that.logger.With("method", "ForfeitGame", "gameID", gameID, "playerID", playerID)

	var outcome string

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		outcome = "noop"

		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if game.IsFinished() {
			return nil
		}

		if !game.HasPlayer(playerID) {
			return apperror.ErrNotInGame
		}

		if game.IsWaiting() || game.PlacedCells() < that.rules.ForfeitMinCells {
			outcome = "deleted"
			return tx.DeleteGame(ctx, game)
		}

		outcome = "finished"
		finished := tictactoe.Forfeit(game, game.SymbolOf(playerID), that.now())

		if err = that.recordResult(ctx, tx, finished, false); err != nil {
			return err
		}

		return tx.SetGame(ctx, finished)
	})
	if err != nil {
		return that.fail(log, "failed to forfeit game", err)
	}

	log.Info("game forfeited", "outcome", outcome)

	return nil
}

// TimeoutGame finishes a live timed game whose symbol has run out of time.
func (that *GameManager) TimeoutGame(ctx context.Context, gameID string, symbol entity.Symbol) error {
	log := that.logger.With("method", "TimeoutGame", "gameID", gameID, "symbol", symbol)

	if !symbol.IsPlayer() {
		return apperror.ErrInvalidMove
	}

	var finished *entity.Game

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := that.now()

		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrNotActive
		}
		if err != nil {
			return err
		}

		if !game.IsLive() || !game.IsTimed() {
			return apperror.ErrNotActive
		}

		if tictactoe.RemainingAt(game, symbol, now) > 0 {
			return apperror.ErrClockNotExpired
		}

		finished = tictactoe.Timeout(game, symbol, that.rules.TimeoutTiebreak, now)

		if err = that.recordResult(ctx, tx, finished, false); err != nil {
			return err
		}

		return tx.SetGame(ctx, finished)
	})
	if err != nil {
		return that.fail(log, "failed to time out game", err)
	}

	log.Info("game timed out", "status", finished.Status, "winner", finished.Winner)

	return nil
}

// RequestRematch records playerID's request on a finished game. The request
// that completes the pair creates the successor game and links it through
// NextGameID; its id is returned. Until then the returned id is empty.
func (that *GameManager) RequestRematch(ctx context.Context, gameID, playerID string) (string, error) {
	log := that.logger.With("method", "RequestRematch", "gameID", gameID, "playerID", playerID)

	var nextGameID string

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		nextGameID = ""
		now := that.now()

		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrRematchUnavailable
		}
		if err != nil {
			return err
		}

		if !game.IsFinished() || game.XPlayer == nil || game.OPlayer == nil {
			return apperror.ErrRematchUnavailable
		}

		if game.SymbolOf(playerID) == entity.NoSymbol {
			return apperror.ErrNotInGame
		}

		if game.NextGameID != "" {
			nextGameID = game.NextGameID
			return nil
		}

		if !game.RematchRequested(playerID) {
			game.RematchRequestedBy = append(game.RematchRequestedBy, playerID)
		}

		if game.RematchRequested(game.XPlayer.ID) && game.RematchRequested(game.OPlayer.ID) {
			for _, id := range []string{game.XPlayer.ID, game.OPlayer.ID} {
				if err = that.leaveActiveGames(ctx, tx, id, now); err != nil {
					return err
				}
			}

			rematch := tictactoe.NewRematch(game, that.newID(), that.swapSeats(), now)
			if err = tx.SetGame(ctx, rematch); err != nil {
				return err
			}

			game.NextGameID = rematch.ID
			nextGameID = rematch.ID
		}

		game.UpdatedAt = now.UnixMilli()

		return tx.SetGame(ctx, game)
	})
	if err != nil {
		return "", that.fail(log, "failed to request rematch", err)
	}

	log.Info("rematch requested", "nextGameID", nextGameID)

	return nextGameID, nil
}

// SendMessage appends a chat line from a participant, keeping only the newest
// Rules.ChatHistoryLimit lines.
func (that *GameManager) SendMessage(ctx context.Context, gameID, playerID, text string) error {
	log := that.logger.With("method", "SendMessage", "gameID", gameID, "playerID", playerID)

	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxMessageLength {
		return apperror.ErrInvalidMessage
	}

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := that.now()

		game, err := tx.GetGame(ctx, gameID)
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrNotAvailable
		}
		if err != nil {
			return err
		}

		sender := game.Seat(game.SymbolOf(playerID))
		if sender == nil {
			return apperror.ErrNotInGame
		}

		game.Chat = append(game.Chat, entity.ChatMessage{
			SenderID:   sender.ID,
			SenderName: sender.Name,
			Text:       text,
			Timestamp:  now.UnixMilli(),
		})

		if limit := that.rules.ChatHistoryLimit; limit > 0 && len(game.Chat) > limit {
			game.Chat = game.Chat[len(game.Chat)-limit:]
		}

		game.UpdatedAt = now.UnixMilli()

		return tx.SetGame(ctx, game)
	})
	if err != nil {
		return that.fail(log, "failed to send message", err)
	}

	log.Debug("message sent")

	return nil
}

func (that *GameManager) GetGame(ctx context.Context, gameID string) (*entity.Game, error) {
	game, err := that.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *GameManager) GetPlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	player, err := that.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

// SyncPlayer creates or refreshes the player record from the account
// profile. Wins and losses are never touched here.
func (that *GameManager) SyncPlayer(ctx context.Context, profile *entity.PlayerProfile) (*entity.Player, error) {
	if profile == nil || profile.ID == "" {
		return nil, ErrPlayerRequired
	}

	var player *entity.Player

	err := that.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		player, err = tx.GetPlayer(ctx, profile.ID)
		if errors.Is(err, repository.ErrPlayerNotFound) {
			player = &entity.Player{ID: profile.ID}
		} else if err != nil {
			return err
		}

		player.Name = profile.Name
		player.Icon = profile.Icon
		player.Color = profile.Color

		return tx.SetPlayer(ctx, player)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync player: %w", err)
	}

	return player, nil
}

// leaveActiveGames enforces one active game per player: waiting games of
// playerID are deleted and live ones are lost to the opponent. Stats are
// skipped for missing player records.
func (that *GameManager) leaveActiveGames(ctx context.Context, tx repository.Tx, playerID string, now time.Time) error {
	ids, err := tx.PlayerGameIDs(ctx, playerID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		game, err := tx.GetGame(ctx, id)
		if errors.Is(err, repository.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if !game.HasPlayer(playerID) {
			continue
		}

		switch game.Status {
		case entity.StatusWaiting:
			if err = tx.DeleteGame(ctx, game); err != nil {
				return err
			}
		case entity.StatusLive:
			finished := tictactoe.Forfeit(game, game.SymbolOf(playerID), now)
			if err = that.recordResult(ctx, tx, finished, false); err != nil {
				return err
			}
			if err = tx.SetGame(ctx, finished); err != nil {
				return err
			}
		}
	}

	return nil
}

// recordResult credits a decisive finish to both player records, relative to
// the values read in tx. With strict set a missing record is an error;
// otherwise the stats update is skipped.
func (that *GameManager) recordResult(ctx context.Context, tx repository.Tx, game *entity.Game, strict bool) error {
	if !game.Winner.IsPlayer() {
		return nil
	}

	winnerSeat, loserSeat := game.Seat(game.Winner), game.Seat(game.Winner.Opponent())
	if winnerSeat == nil || loserSeat == nil {
		if strict {
			return fmt.Errorf("game %s has an empty seat: %w", game.ID, repository.ErrPlayerNotFound)
		}
		return nil
	}

	winner, err := tx.GetPlayer(ctx, winnerSeat.ID)
	if err != nil {
		return that.missingPlayer(game, winnerSeat.ID, err, strict)
	}

	loser, err := tx.GetPlayer(ctx, loserSeat.ID)
	if err != nil {
		return that.missingPlayer(game, loserSeat.ID, err, strict)
	}

	winner.Wins++
	loser.Losses++

	if err = tx.SetPlayer(ctx, winner); err != nil {
		return err
	}

	return tx.SetPlayer(ctx, loser)
}

func (that *GameManager) missingPlayer(game *entity.Game, playerID string, err error, strict bool) error {
	if strict || !errors.Is(err, repository.ErrPlayerNotFound) {
		return fmt.Errorf("failed to record result of game %s for player %s: %w", game.ID, playerID, err)
	}

	that.logger.Warn("skipping stats for missing player", "gameID", game.ID, "playerID", playerID)

	return nil
}

// fail logs err at a level matching its kind and returns it ready for the
// caller. Rejections are returned unwrapped.
func (that *GameManager) fail(log *slog.Logger, msg string, err error, args ...any) error {
	args = append(args, "error", err)

	if apperror.IsRejection(err) {
		log.Debug(msg, args...)
		return err
	}

	log.Error(msg, args...)

	return fmt.Errorf("%s: %w", msg, err)
}
