package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type sqliteStore struct {
	conn        *sql.DB
	maxAttempts int
}

// NewSQLiteStore keeps games and players as JSON documents in the tables
// created by storage.Storage.Init. A transaction holds the write lock from
// BEGIN, so conflicting transactions wait and only lock timeouts are retried.
func NewSQLiteStore(conn *sql.DB, maxAttempts int) Store {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTxAttempts
	}

	return &sqliteStore{
		conn:        conn,
		maxAttempts: maxAttempts,
	}
}

func (that *sqliteStore) RunInTx(ctx context.Context, fn TxFunc) error {
	for range that.maxAttempts {
		err := that.runOnce(ctx, fn)
		if isBusy(err) {
			continue
		}

		return err
	}

	return ErrTxConflict
}

func (that *sqliteStore) runOnce(ctx context.Context, fn TxFunc) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err = fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}

func (that *sqliteStore) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	return selectGame(ctx, that.conn, id)
}

func (that *sqliteStore) GetPlayer(ctx context.Context, id string) (*entity.Player, error) {
	return selectPlayer(ctx, that.conn, id)
}

func (that *sqliteStore) ActiveGameIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM games WHERE status != ? ORDER BY id`

	return selectIDs(ctx, that.conn, query, entity.StatusFinished)
}

func (that *sqliteStore) Ping(ctx context.Context) error {
	return that.conn.PingContext(ctx)
}

func (that *sqliteStore) Close() error {
	return that.conn.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (that *sqliteTx) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	return selectGame(ctx, that.tx, id)
}

func (that *sqliteTx) SetGame(ctx context.Context, game *entity.Game) error {
	doc, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	query := `INSERT INTO games (id, status, doc) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, doc = excluded.doc`

	if _, err = that.tx.ExecContext(ctx, query, game.ID, game.Status, string(doc)); err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	for _, playerID := range game.PlayerIDs {
		query = `INSERT OR IGNORE INTO game_players (game_id, player_id) VALUES (?, ?)`
		if _, err = that.tx.ExecContext(ctx, query, game.ID, playerID); err != nil {
			return fmt.Errorf("can't index game player: %w", err)
		}
	}

	return nil
}

func (that *sqliteTx) DeleteGame(ctx context.Context, game *entity.Game) error {
	if _, err := that.tx.ExecContext(ctx, `DELETE FROM game_players WHERE game_id = ?`, game.ID); err != nil {
		return fmt.Errorf("can't delete game players: %w", err)
	}

	if _, err := that.tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, game.ID); err != nil {
		return fmt.Errorf("can't delete game: %w", err)
	}

	return nil
}

func (that *sqliteTx) GetPlayer(ctx context.Context, id string) (*entity.Player, error) {
	return selectPlayer(ctx, that.tx, id)
}

func (that *sqliteTx) SetPlayer(ctx context.Context, player *entity.Player) error {
	doc, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	query := `INSERT INTO players (id, doc) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc`

	if _, err = that.tx.ExecContext(ctx, query, player.ID, string(doc)); err != nil {
		return fmt.Errorf("can't save player: %w", err)
	}

	return nil
}

func (that *sqliteTx) PlayerGameIDs(ctx context.Context, playerID string) ([]string, error) {
	query := `SELECT g.id FROM games g
		JOIN game_players gp ON gp.game_id = g.id
		WHERE gp.player_id = ? AND g.status != ?
		ORDER BY g.id`

	return selectIDs(ctx, that.tx, query, playerID, entity.StatusFinished)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func selectGame(ctx context.Context, conn querier, id string) (*entity.Game, error) {
	var doc string

	err := conn.QueryRowContext(ctx, `SELECT doc FROM games WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find game: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(doc), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

func selectPlayer(ctx context.Context, conn querier, id string) (*entity.Player, error) {
	var doc string

	err := conn.QueryRowContext(ctx, `SELECT doc FROM players WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find player: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(doc), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func selectIDs(ctx context.Context, conn querier, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("can't scan game id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list games: %w", err)
	}

	return ids, nil
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code() & 0xff

	return code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED
}
