package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a room has never been persisted.
var ErrNotFound = errors.New("room not found")

// Room is the durable part of a room document. Presence is live state and is
// never persisted.
type Room struct {
	Key       string
	Language  string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// GetRoom retrieves a room by key. Returns ErrNotFound for unknown keys.
	GetRoom(ctx context.Context, key string) (*Room, error)

	// SaveRoom inserts the room or overwrites its language and code.
	SaveRoom(ctx context.Context, room *Room) error

	// ListRooms lists persisted rooms, most recently updated first.
	ListRooms(ctx context.Context, limit int) ([]*Room, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore

	// Close closes the underlying database connection.
	Close() error
}
