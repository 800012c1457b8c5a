package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/codeshare-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room key")
	code := flag.String("code", "print('hello from smoke test')", "code to write")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var nextID int64
	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		nextID++
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: nextID, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	path := "/" + *room + "/code"
	if err := mustSend(proto.InboundTypeSub, proto.SubData{Path: path, Kind: proto.SubKindValue}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSet, proto.SetData{Path: path, Value: *code}); err != nil {
		return err
	}

	for {
		var outbound proto.RawOutbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error: %w", outbound.Error)
		}
		if outbound.Event != proto.EventValue {
			continue
		}

		var evt proto.EventData
		if err := json.Unmarshal(outbound.Data, &evt); err != nil {
			fmt.Printf("Raw data: %s\n", string(outbound.Data))
			return fmt.Errorf("unmarshal event: %w", err)
		}
		fmt.Printf("Value: path=%s value=%v\n", evt.Path, evt.Value)
		if evt.Value == *code {
			return nil
		}
	}
}
