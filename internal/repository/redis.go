package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

const activeGamesKey = "games:active"

func gameKey(id string) string {
	return "game:" + id
}

func playerKey(id string) string {
	return "player:" + id
}

func playerGamesKey(id string) string {
	return "player:" + id + ":games"
}

type redisStore struct {
	client      *redis.Client
	maxAttempts int
}

// NewRedisStore keeps games and players as JSON documents. Transactions use
// WATCH on every key they read and apply their writes in one MULTI/EXEC.
func NewRedisStore(client *redis.Client, maxAttempts int) Store {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTxAttempts
	}

	return &redisStore{
		client:      client,
		maxAttempts: maxAttempts,
	}
}

func (that *redisStore) RunInTx(ctx context.Context, fn TxFunc) error {
	for range that.maxAttempts {
		err := that.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := newRedisTx(rtx)
			if err := fn(ctx, tx); err != nil {
				return err
			}

			return tx.commit(ctx)
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return ErrTxConflict
}

func (that *redisStore) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	return getGame(ctx, that.client, id)
}

func (that *redisStore) GetPlayer(ctx context.Context, id string) (*entity.Player, error) {
	return getPlayer(ctx, that.client, id)
}

func (that *redisStore) ActiveGameIDs(ctx context.Context) ([]string, error) {
	ids, err := that.client.SMembers(ctx, activeGamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active games: %w", err)
	}

	return ids, nil
}

func (that *redisStore) Ping(ctx context.Context) error {
	return that.client.Ping(ctx).Err()
}

func (that *redisStore) Close() error {
	return that.client.Close()
}

// redisTx caches every document it reads or writes, so repeated reads inside
// one transaction see the staged state. Writes are queued until commit.
type redisTx struct {
	tx *redis.Tx

	watched map[string]struct{}
	games   map[string]*entity.Game
	players map[string]*entity.Player
	writes  []func(ctx context.Context, pipe redis.Pipeliner)
}

func newRedisTx(tx *redis.Tx) *redisTx {
	return &redisTx{
		tx:      tx,
		watched: make(map[string]struct{}),
		games:   make(map[string]*entity.Game),
		players: make(map[string]*entity.Player),
	}
}

func (that *redisTx) watch(ctx context.Context, key string) error {
	if _, ok := that.watched[key]; ok {
		return nil
	}

	if err := that.tx.Watch(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", key, err)
	}

	that.watched[key] = struct{}{}

	return nil
}

func (that *redisTx) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	if game, ok := that.games[id]; ok {
		if game == nil {
			return nil, ErrGameNotFound
		}
		return game.Clone(), nil
	}

	if err := that.watch(ctx, gameKey(id)); err != nil {
		return nil, err
	}

	game, err := getGame(ctx, that.tx, id)
	if errors.Is(err, ErrGameNotFound) {
		that.games[id] = nil
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	that.games[id] = game

	return game.Clone(), nil
}

func (that *redisTx) SetGame(_ context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	id, playerIDs, finished := game.ID, game.PlayerIDs, game.IsFinished()
	that.games[id] = game.Clone()

	that.writes = append(that.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Set(ctx, gameKey(id), gameJSON, 0)

		if finished {
			pipe.SRem(ctx, activeGamesKey, id)
			for _, playerID := range playerIDs {
				pipe.SRem(ctx, playerGamesKey(playerID), id)
			}
			return
		}

		pipe.SAdd(ctx, activeGamesKey, id)
		for _, playerID := range playerIDs {
			pipe.SAdd(ctx, playerGamesKey(playerID), id)
		}
	})

	return nil
}

func (that *redisTx) DeleteGame(_ context.Context, game *entity.Game) error {
	id, playerIDs := game.ID, game.PlayerIDs
	that.games[id] = nil

	that.writes = append(that.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Del(ctx, gameKey(id))
		pipe.SRem(ctx, activeGamesKey, id)
		for _, playerID := range playerIDs {
			pipe.SRem(ctx, playerGamesKey(playerID), id)
		}
	})

	return nil
}

func (that *redisTx) GetPlayer(ctx context.Context, id string) (*entity.Player, error) {
	if player, ok := that.players[id]; ok {
		if player == nil {
			return nil, ErrPlayerNotFound
		}
		clone := *player
		return &clone, nil
	}

	if err := that.watch(ctx, playerKey(id)); err != nil {
		return nil, err
	}

	player, err := getPlayer(ctx, that.tx, id)
	if errors.Is(err, ErrPlayerNotFound) {
		that.players[id] = nil
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	that.players[id] = player
	clone := *player

	return &clone, nil
}

func (that *redisTx) SetPlayer(_ context.Context, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	stored := *player
	that.players[player.ID] = &stored

	that.writes = append(that.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Set(ctx, playerKey(stored.ID), playerJSON, 0)
	})

	return nil
}

func (that *redisTx) PlayerGameIDs(ctx context.Context, playerID string) ([]string, error) {
	key := playerGamesKey(playerID)
	if err := that.watch(ctx, key); err != nil {
		return nil, err
	}

	ids, err := that.tx.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games of player: %w", err)
	}

	return ids, nil
}

func (that *redisTx) commit(ctx context.Context) error {
	if len(that.writes) == 0 {
		return nil
	}

	_, err := that.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, write := range that.writes {
			write(ctx, pipe)
		}
		return nil
	})

	return err
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, client stringGetter, id string) (*entity.Game, error) {
	response, err := client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.Game
	if err = json.Unmarshal(response, &existingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &existingGame, nil
}

func getPlayer(ctx context.Context, client stringGetter, id string) (*entity.Player, error) {
	response, err := client.Get(ctx, playerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player by ID: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal(response, &existingPlayer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &existingPlayer, nil
}
