package http

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/config"
	"github.com/vovakirdan/codeshare-server/internal/core"
	"github.com/vovakirdan/codeshare-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testConfig() config.Config {
	return config.Config{
		Addr:               ":0",
		ReadHeaderTimeout:  time.Second,
		ShutdownTimeout:    time.Second,
		SessionSecret:      "test-secret",
		RateLimitPerMinute: 0,
		MaxMessageBytes:    1 << 20,
	}
}

// startTestServer runs a hub backed by an in-memory store behind httptest.
func startTestServer(t *testing.T) (*httptest.Server, *core.Hub, *sqlite.SQLiteStore) {
	t.Helper()

	st := createTestStore(t)
	disabledLogger := zerolog.New(nil).Level(zerolog.Disabled)

	hub := core.NewHub(st, &disabledLogger)
	hub.SetFlushInterval(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, st, testConfig(), &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, hub, st
}
