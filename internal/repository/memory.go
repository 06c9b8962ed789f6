package repository

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type memoryStore struct {
	mu      sync.Mutex
	games   map[string]*entity.Game
	players map[string]*entity.Player
}

// NewMemoryStore runs one transaction at a time against staged copies of the
// maps. A transaction that returns an error leaves the store untouched.
func NewMemoryStore() Store {
	return &memoryStore{
		games:   make(map[string]*entity.Game),
		players: make(map[string]*entity.Player),
	}
}

func (that *memoryStore) RunInTx(ctx context.Context, fn TxFunc) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		games:   maps.Clone(that.games),
		players: maps.Clone(that.players),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	that.games, that.players = tx.games, tx.players

	return nil
}

func (that *memoryStore) GetGame(_ context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	return game.Clone(), nil
}

func (that *memoryStore) GetPlayer(_ context.Context, id string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, ok := that.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	clone := *player

	return &clone, nil
}

func (that *memoryStore) ActiveGameIDs(_ context.Context) ([]string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var ids []string
	for id, game := range that.games {
		if !game.IsFinished() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids, nil
}

func (that *memoryStore) Ping(context.Context) error {
	return nil
}

func (that *memoryStore) Close() error {
	return nil
}

// memoryTx owns shallow copies of the store maps. Values are replaced, never
// mutated in place, so the committed maps are not affected by staged writes.
type memoryTx struct {
	games   map[string]*entity.Game
	players map[string]*entity.Player
}

func (that *memoryTx) GetGame(_ context.Context, id string) (*entity.Game, error) {
	game, ok := that.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	return game.Clone(), nil
}

func (that *memoryTx) SetGame(_ context.Context, game *entity.Game) error {
	that.games[game.ID] = game.Clone()
	return nil
}

func (that *memoryTx) DeleteGame(_ context.Context, game *entity.Game) error {
	delete(that.games, game.ID)
	return nil
}

func (that *memoryTx) GetPlayer(_ context.Context, id string) (*entity.Player, error) {
	player, ok := that.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	clone := *player

	return &clone, nil
}

func (that *memoryTx) SetPlayer(_ context.Context, player *entity.Player) error {
	clone := *player
	that.players[player.ID] = &clone
	return nil
}

func (that *memoryTx) PlayerGameIDs(_ context.Context, playerID string) ([]string, error) {
	var ids []string
	for id, game := range that.games {
		if !game.IsFinished() && game.HasPlayer(playerID) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids, nil
}
