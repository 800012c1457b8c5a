package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/codeshare-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRoom(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRoomUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRoom(ctx, &store.Room{Key: "abc123", Language: "python", Code: "print(1)"}); err != nil {
		t.Fatalf("save room: %v", err)
	}
	if err := s.SaveRoom(ctx, &store.Room{Key: "abc123", Language: "ruby", Code: "puts 1"}); err != nil {
		t.Fatalf("save room again: %v", err)
	}

	room, err := s.GetRoom(ctx, "abc123")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Language != "ruby" || room.Code != "puts 1" {
		t.Fatalf("unexpected room after upsert: %+v", room)
	}
	if room.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}
}

func TestListRoomsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rooms := []struct {
		key string
		at  time.Time
	}{
		{"old", base},
		{"new", base.Add(2 * time.Hour)},
		{"mid", base.Add(time.Hour)},
	}
	for _, r := range rooms {
		if err := s.SaveRoom(ctx, &store.Room{Key: r.key, UpdatedAt: r.at}); err != nil {
			t.Fatalf("save %s: %v", r.key, err)
		}
	}

	tests := []struct {
		name     string
		limit    int
		expected []string
	}{
		{name: "all", limit: 10, expected: []string{"new", "mid", "old"}},
		{name: "limited", limit: 2, expected: []string{"new", "mid"}},
		{name: "default limit", limit: 0, expected: []string{"new", "mid", "old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRooms(ctx, tt.limit)
			if err != nil {
				t.Fatalf("ListRooms failed: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d rooms, got %d", len(tt.expected), len(got))
			}
			for i, room := range got {
				if room.Key != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, room.Key)
				}
			}
		})
	}
}
