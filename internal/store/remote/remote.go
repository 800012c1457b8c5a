// Package remote is the WebSocket client of the room state store server. It
// implements collab.Store over the tree protocol.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/proto"
)

// ErrClosed is returned for calls on a closed or broken connection.
var ErrClosed = errors.New("store connection closed")

const unsubTimeout = 5 * time.Second

type result struct {
	msg proto.RawOutbound
	err error
}

type call struct {
	done    chan result
	onEvent func(proto.RawOutbound)
}

// Client is a collab.Store backed by one WebSocket connection. Subscription
// callbacks run on the read goroutine, in the order the server sent them.
type Client struct {
	conn *websocket.Conn
	log  *zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*call
	subs    map[int64]func(proto.RawOutbound)
	err     error

	cancel context.CancelFunc
	done   chan struct{}
}

var _ collab.Store = (*Client)(nil)

// Dial connects to the store at rawURL, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, rawURL string, logger *zerolog.Logger) (*Client, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("protocol", strconv.Itoa(proto.ProtocolVersion))
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	conn.SetReadLimit(1 << 22)

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		log:     logger,
		pending: make(map[int64]*call),
		subs:    make(map[int64]func(proto.RawOutbound)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.readLoop(readCtx)
	return c, nil
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the reason the connection ended, if it did.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection and fails every pending call.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "bye")
	c.cancel()
	<-c.done
	return err
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		var msg proto.RawOutbound
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			c.fail(err)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg proto.RawOutbound) {
	switch msg.Type {
	case proto.OutboundTypeAck:
		c.mu.Lock()
		pc, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		if ok && pc.onEvent != nil && msg.Error == nil {
			// Install the handler before the initial events are read.
			var ack proto.SubAck
			if err := json.Unmarshal(msg.Data, &ack); err == nil && ack.Sub != 0 {
				c.subs[ack.Sub] = pc.onEvent
			}
		}
		c.mu.Unlock()
		if ok {
			pc.done <- result{msg: msg}
		}
	case proto.OutboundTypeEvent:
		c.mu.Lock()
		fn := c.subs[msg.Sub]
		c.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	case proto.OutboundTypeError:
		c.log.Warn().Str("code", errCode(msg.Error)).Msg("store error")
	default:
		c.log.Debug().Str("type", msg.Type).Msg("unknown outbound message")
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	for id, pc := range c.pending {
		pc.done <- result{err: c.err}
		delete(c.pending, id)
	}
	c.subs = make(map[int64]func(proto.RawOutbound))
}

func (c *Client) request(ctx context.Context, typ string, data any, onEvent func(proto.RawOutbound)) (proto.RawOutbound, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return proto.RawOutbound{}, fmt.Errorf("marshal %s: %w", typ, err)
	}

	pc := &call{done: make(chan result, 1), onEvent: onEvent}
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return proto.RawOutbound{}, err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = pc
	c.mu.Unlock()

	c.writeMu.Lock()
	err = wsjson.Write(ctx, c.conn, proto.Inbound{Type: typ, ID: id, Data: payload})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return proto.RawOutbound{}, fmt.Errorf("send %s: %w", typ, err)
	}

	select {
	case res := <-pc.done:
		if res.err != nil {
			return proto.RawOutbound{}, res.err
		}
		if res.msg.Error != nil {
			return res.msg, res.msg.Error
		}
		return res.msg, nil
	case <-ctx.Done():
		c.forget(id)
		return proto.RawOutbound{}, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	msg, err := c.request(ctx, proto.InboundTypeGet, proto.PathData{Path: path}, nil)
	if err != nil {
		return nil, err
	}
	return decodeValue(msg.Data)
}

func (c *Client) Set(ctx context.Context, path string, value any) error {
	_, err := c.request(ctx, proto.InboundTypeSet, proto.SetData{Path: path, Value: value}, nil)
	return err
}

func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.request(ctx, proto.InboundTypeRemove, proto.PathData{Path: path}, nil)
	return err
}

func (c *Client) OnValue(ctx context.Context, path string, fn func(any)) (collab.Unsubscribe, error) {
	return c.subscribe(ctx, path, proto.SubKindValue, func(msg proto.RawOutbound) {
		var data proto.EventData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("decode value event")
			return
		}
		fn(data.Value)
	})
}

func (c *Client) OnChild(ctx context.Context, path string, fn func(collab.ChildEvent)) (collab.Unsubscribe, error) {
	return c.subscribe(ctx, path, proto.SubKindChild, func(msg proto.RawOutbound) {
		kind, ok := childKind(msg.Event)
		if !ok {
			return
		}
		var data proto.EventData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("decode child event")
			return
		}
		fn(collab.ChildEvent{Kind: kind, Key: data.Key, Value: data.Value})
	})
}

func (c *Client) subscribe(ctx context.Context, path, kind string, onEvent func(proto.RawOutbound)) (collab.Unsubscribe, error) {
	msg, err := c.request(ctx, proto.InboundTypeSub, proto.SubData{Path: path, Kind: kind}, onEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}
	var ack proto.SubAck
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return nil, fmt.Errorf("decode sub ack: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ack.Sub)
			broken := c.err != nil
			c.mu.Unlock()
			if broken {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), unsubTimeout)
			defer cancel()
			if _, err := c.request(ctx, proto.InboundTypeUnsub, proto.UnsubData{Sub: ack.Sub}, nil); err != nil {
				c.log.Debug().Err(err).Int64("sub", ack.Sub).Msg("unsubscribe")
			}
		})
	}, nil
}

func childKind(event string) (collab.ChildEventKind, bool) {
	switch event {
	case proto.EventChildAdded:
		return collab.ChildAdded, true
	case proto.EventChildChanged:
		return collab.ChildChanged, true
	case proto.EventChildRemoved:
		return collab.ChildRemoved, true
	default:
		return 0, false
	}
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func errCode(e *proto.Error) string {
	if e == nil {
		return ""
	}
	return e.Code
}
