package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	// import the SQLite driver to register it with the database/sql package.
	_ "modernc.org/sqlite"
)

// Writers take the database lock at BEGIN so two read-modify-write
// transactions on the same game serialize instead of failing at COMMIT.
const sqliteParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		doc TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_players (
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		player_id TEXT NOT NULL,
		PRIMARY KEY (game_id, player_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_players_player ON game_players (player_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_status ON games (status)`,
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	)`,
}

type Storage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	conn, err := sql.Open("sqlite", filepath.Clean(path)+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range schema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}
