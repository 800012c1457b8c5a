package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	ID   int64           `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeGet    = "get"
	InboundTypeSet    = "set"
	InboundTypeRemove = "remove"
	InboundTypeSub    = "sub"
	InboundTypeUnsub  = "unsub"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventValue        = "value"
	EventChildAdded   = "child_added"
	EventChildChanged = "child_changed"
	EventChildRemoved = "child_removed"

	SubKindValue = "value"
	SubKindChild = "child"
)

// PathData addresses a node for get and remove.
type PathData struct {
	Path string `json:"path"`
}

// SetData replaces the value under Path.
type SetData struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// SubData starts a subscription of the given kind.
type SubData struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// UnsubData stops a subscription.
type UnsubData struct {
	Sub int64 `json:"sub"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    int64  `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Sub   int64  `json:"sub,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// RawOutbound mirrors Outbound for decoding on the client side.
type RawOutbound struct {
	Type  string          `json:"type"`
	ID    int64           `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Sub   int64           `json:"sub,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// EventData is the payload of value and child events.
type EventData struct {
	Path  string `json:"path"`
	Key   string `json:"key,omitempty"`
	Value any    `json:"value"`
}

// SubAck is the payload of a sub acknowledgement.
type SubAck struct {
	Sub int64 `json:"sub"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}
