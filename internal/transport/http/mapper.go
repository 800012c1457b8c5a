package http

import (
	"encoding/json"

	"github.com/vovakirdan/codeshare-server/internal/core"
	"github.com/vovakirdan/codeshare-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	cmd := &core.Command{ID: inbound.ID}

	switch inbound.Type {
	case proto.InboundTypeGet, proto.InboundTypeRemove:
		var data proto.PathData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		cmd.Kind = core.CommandGet
		if inbound.Type == proto.InboundTypeRemove {
			cmd.Kind = core.CommandRemove
		}
		cmd.Path = data.Path
	case proto.InboundTypeSet:
		var data proto.SetData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		cmd.Kind = core.CommandSet
		cmd.Path = data.Path
		cmd.Value = data.Value
	case proto.InboundTypeSub:
		var data proto.SubData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		cmd.Kind = core.CommandSubscribe
		cmd.Path = data.Path
		switch data.Kind {
		case proto.SubKindValue, "":
			cmd.Sub = core.SubscribeValue
		case proto.SubKindChild:
			cmd.Sub = core.SubscribeChild
		default:
			return nil, badRequest("kind must be value or child")
		}
	case proto.InboundTypeUnsub:
		var data proto.UnsubData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		cmd.Kind = core.CommandUnsubscribe
		cmd.SubID = data.Sub
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
	return cmd, nil
}

// rejection answers a command that never reached the hub.
func rejection(id int64, protoErr *proto.Error) proto.Outbound {
	if id == 0 {
		return proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}
	}
	return proto.Outbound{Type: proto.OutboundTypeAck, ID: id, Error: protoErr}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventAck:
		out := proto.Outbound{Type: proto.OutboundTypeAck, ID: event.ID}
		if event.Error != nil {
			out.Error = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
			return out
		}
		if event.SubID != 0 {
			out.Data = proto.SubAck{Sub: event.SubID}
		} else {
			out.Data = event.Value
		}
		return out
	case core.EventValue:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventValue,
			Sub:   event.SubID,
			Data:  proto.EventData{Path: event.Path, Value: event.Value},
		}
	case core.EventChildAdded, core.EventChildChanged, core.EventChildRemoved:
		name := proto.EventChildAdded
		switch event.Kind {
		case core.EventChildChanged:
			name = proto.EventChildChanged
		case core.EventChildRemoved:
			name = proto.EventChildRemoved
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: name,
			Sub:   event.SubID,
			Data:  proto.EventData{Path: event.Path, Key: event.Key, Value: event.Value},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
