package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/codeshare-server/internal/store"
)

// Schema creates the tables the store needs. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	key        TEXT PRIMARY KEY,
	language   TEXT NOT NULL DEFAULT '',
	code       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rooms_updated ON rooms(updated_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetRoom retrieves a room by key.
func (s *SQLiteStore) GetRoom(ctx context.Context, key string) (*store.Room, error) {
	query := `
		SELECT key, language, code, created_at, updated_at
		FROM rooms
		WHERE key = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&room.Key,
		&room.Language,
		&room.Code,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// SaveRoom upserts the room's language and code.
func (s *SQLiteStore) SaveRoom(ctx context.Context, room *store.Room) error {
	query := `
		INSERT INTO rooms (key, language, code, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			language = excluded.language,
			code = excluded.code,
			updated_at = excluded.updated_at
	`
	updatedAt := room.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, query, room.Key, room.Language, room.Code, updatedAt); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	return nil
}

// ListRooms lists persisted rooms, most recently updated first.
func (s *SQLiteStore) ListRooms(ctx context.Context, limit int) ([]*store.Room, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT key, language, code, created_at, updated_at
		FROM rooms
		ORDER BY updated_at DESC, key ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.Key, &room.Language, &room.Code, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}
