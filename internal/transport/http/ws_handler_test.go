package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/proto"
	"github.com/vovakirdan/codeshare-server/internal/store/remote"
)

func wsURL(httpURL string) string {
	return strings.Replace(httpURL, "http", "ws", 1) + "/ws"
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, id int64, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: id, Data: payload}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.RawOutbound {
	t.Helper()
	var out proto.RawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketSubscribeAndSet(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA, _, err := websocket.Dial(ctx, wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, connA, proto.InboundTypeSub, 1, proto.SubData{Path: "/abc123/code", Kind: proto.SubKindValue})
	ack := read(ctx, t, connA)
	if ack.Type != proto.OutboundTypeAck || ack.ID != 1 || ack.Error != nil {
		t.Fatalf("unexpected sub ack: %+v", ack)
	}
	var subAck proto.SubAck
	if err := json.Unmarshal(ack.Data, &subAck); err != nil || subAck.Sub == 0 {
		t.Fatalf("sub ack data = %s (%v)", ack.Data, err)
	}

	initial := read(ctx, t, connA)
	if initial.Event != proto.EventValue || initial.Sub != subAck.Sub {
		t.Fatalf("unexpected initial event: %+v", initial)
	}

	send(ctx, t, connB, proto.InboundTypeSet, 7, proto.SetData{Path: "/abc123/code", Value: "print(1)"})
	if ack := read(ctx, t, connB); ack.ID != 7 || ack.Error != nil {
		t.Fatalf("unexpected set ack: %+v", ack)
	}

	ev := read(ctx, t, connA)
	var data proto.EventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if ev.Event != proto.EventValue || data.Path != "/abc123/code" || data.Value != "print(1)" {
		t.Fatalf("unexpected event: %+v %+v", ev, data)
	}
}

func TestWebSocketRejections(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(ctx, wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	tests := []struct {
		name string
		typ  string
		data any
		code string
	}{
		{"unknown type", "join", proto.PathData{Path: "/abc123"}, "invalid_message"},
		{"bad room key", proto.InboundTypeSet, proto.SetData{Path: "/Not-A-Key/code", Value: "x"}, "bad_path"},
		{"empty path", proto.InboundTypeGet, proto.PathData{}, "bad_path"},
		{"bad sub kind", proto.InboundTypeSub, proto.SubData{Path: "/abc123", Kind: "all"}, "bad_request"},
		{"unknown sub", proto.InboundTypeUnsub, proto.UnsubData{Sub: 99}, "unknown_sub"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := int64(i + 1)
			send(ctx, t, conn, tt.typ, id, tt.data)
			out := read(ctx, t, conn)
			if out.ID != id || out.Error == nil || out.Error.Code != tt.code {
				t.Fatalf("got %+v (error %+v), want %s", out, out.Error, tt.code)
			}
		})
	}
}

func TestSessionsConvergeOverWebSocket(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	open := func(code, name string) (*collab.Session, *collab.Buffer) {
		t.Helper()
		st, err := remote.Dial(ctx, wsURL(ts.URL), nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		buf := collab.NewBuffer()
		s, err := collab.Open(ctx, st, "abc123", identity.LocalIdentity{UserCode: code, UserName: name, Color: "red"}, buf, buf, nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		buf.OnChange(func(string) { s.LocalChange() })
		t.Cleanup(func() {
			_ = s.Close(context.Background())
			_ = st.Close()
		})
		return s, buf
	}

	s1, b1 := open("u1", "ann")
	_, b2 := open("u2", "bob")

	b1.Type("print(1)")
	s1.LocalChange()
	s1.SetCursor(collab.Position{LineNumber: 4, Column: 10})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		d := b2.Decorations()
		if b2.Value() == "print(1)" && len(d) == 1 && d[0].Range.StartLine == 4 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if b2.Value() != "print(1)" {
		t.Fatalf("client 2 buffer = %q", b2.Value())
	}
	decos := b2.Decorations()
	if len(decos) != 1 || decos[0].UserCode != "u1" || decos[0].Range.StartLine != 4 || decos[0].Range.StartColumn != 10 {
		t.Fatalf("client 2 decorations = %+v", decos)
	}
}
