package repository

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")

	// ErrTxConflict is returned when a transaction kept losing to concurrent
	// writers until its attempts ran out.
	ErrTxConflict = errors.New("transaction conflict")
)

const DefaultMaxTxAttempts = 10

// Tx is the view of the store inside one transaction. Reads observe the
// transaction's own writes. Nothing is visible to other callers until the
// transaction commits.
type Tx interface {
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	SetGame(ctx context.Context, game *entity.Game) error
	DeleteGame(ctx context.Context, game *entity.Game) error

	GetPlayer(ctx context.Context, id string) (*entity.Player, error)
	SetPlayer(ctx context.Context, player *entity.Player) error

	// PlayerGameIDs lists the games indexed as unfinished for playerID. The
	// list may include games finished earlier in the same transaction, so
	// callers re-read each game before acting on it.
	PlayerGameIDs(ctx context.Context, playerID string) ([]string, error)
}

// TxFunc may run more than once when the store retries a conflicting
// transaction. Returning an error aborts the transaction without writing.
type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	RunInTx(ctx context.Context, fn TxFunc) error

	GetGame(ctx context.Context, id string) (*entity.Game, error)
	GetPlayer(ctx context.Context, id string) (*entity.Player, error)

	// ActiveGameIDs lists every game that is waiting or live.
	ActiveGameIDs(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
