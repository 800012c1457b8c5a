package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/codeshare-server/internal/keygen"
	"github.com/vovakirdan/codeshare-server/internal/proto"
)

func TestCreateRoom(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/api/rooms", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	var body CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !keygen.Valid(body.Key) {
		t.Fatalf("invalid key %q", body.Key)
	}
}

func TestGetRoom(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundTypeSet, 1, proto.SetData{
		Path:  "/abc123",
		Value: map[string]any{"code": "puts 1", "users": map[string]any{"u1": map[string]any{"name": "ann"}}},
	})
	if ack := read(ctx, t, conn); ack.Error != nil {
		t.Fatalf("set failed: %+v", ack.Error)
	}

	tests := []struct {
		name     string
		key      string
		status   int
		code     string
		language string
		users    int
	}{
		{"existing room", "abc123", http.StatusOK, "puts 1", "csharp", 1},
		{"empty room", "zzz", http.StatusOK, "", "csharp", 0},
		{"invalid key", "NOPE", http.StatusBadRequest, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.Client().Get(ts.URL + "/api/rooms/" + tt.key)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var snap RoomSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if snap.Code != tt.code || snap.Language != tt.language || len(snap.Users) != tt.users {
				t.Fatalf("snapshot = %+v", snap)
			}
		})
	}
}

func TestListRoomsAfterFlush(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundTypeSet, 1, proto.SetData{Path: "/abc123/language", Value: "ruby"})
	_ = read(ctx, t, conn)
	// Presence alone never makes a room durable.
	send(ctx, t, conn, proto.InboundTypeSet, 2, proto.SetData{Path: "/other/users/u1/name", Value: "ann"})
	_ = read(ctx, t, conn)

	var rooms []RoomSummary
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := ts.Client().Get(ts.URL + "/api/rooms")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		rooms = nil
		err = json.NewDecoder(resp.Body).Decode(&rooms)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(rooms) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(rooms) != 1 || rooms[0].Key != "abc123" || rooms[0].Language != "ruby" {
		t.Fatalf("rooms = %+v", rooms)
	}

	resp, err := ts.Client().Get(ts.URL + "/api/rooms?limit=-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d", resp.StatusCode)
	}
}
