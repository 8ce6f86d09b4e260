package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vovakirdan/tunesync-server/internal/core"
	"github.com/vovakirdan/tunesync-server/internal/proto"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// handleInbound dispatches one client frame to the right service call.
// A returned *proto.Error is sent back to this connection only; a
// non-nil error tears the connection down.
func (h *WSHandler) handleInbound(ctx context.Context, s *wsSession, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeHello:
		var hello proto.HelloData
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, err
		}
		identity, protoErr := h.resolveIdentity(hello, s.client.ID)
		if protoErr != nil {
			return protoErr, nil
		}
		s.client.User = identity
		return nil, nil

	case proto.InboundTypeCreateRoom:
		var create proto.CreateRoomData
		if err := json.Unmarshal(inbound.Data, &create); err != nil {
			return nil, err
		}
		id, err := h.deps.Sessions.CreateRoom(ctx, core.CreateRoomSpec{
			Name:       create.Name,
			Visibility: store.Visibility(create.Visibility),
			Secret:     create.Secret,
			CreatorID:  s.client.User,
		})
		if err != nil {
			return protoError(err), nil
		}
		h.deps.Hub.EmitTo(s.client, &core.Event{Kind: core.EventRoomCreated, RoomID: id})
		if err := h.deps.Dispatch.Directory(ctx, core.ScopeGlobal, nil); err != nil {
			return protoError(err), nil
		}
		return nil, nil

	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, err
		}
		if join.Room == "" {
			return &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "room is required"}, nil
		}
		return protoError(h.deps.Sessions.JoinRoom(ctx, join.Room, s.client.User, join.Secret, s.client)), nil

	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, err
		}
		if leave.Room == "" {
			return &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "room is required"}, nil
		}
		return protoError(h.deps.Sessions.LeaveRoom(ctx, leave.Room, s.client.User, s.client)), nil

	case proto.InboundTypeEnqueue:
		var enqueue proto.EnqueueData
		if err := json.Unmarshal(inbound.Data, &enqueue); err != nil {
			return nil, err
		}
		if enqueue.Room == "" {
			return &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "room is required"}, nil
		}
		track := store.Track{
			URI:     enqueue.URI,
			Title:   enqueue.Title,
			Artist:  enqueue.Artist,
			AddedBy: s.client.User,
		}
		return protoError(h.deps.Queue.Enqueue(ctx, enqueue.Room, track)), nil

	case proto.InboundTypeSkip:
		var skip proto.RoomOnlyData
		if err := json.Unmarshal(inbound.Data, &skip); err != nil {
			return nil, err
		}
		return protoError(h.deps.Queue.Advance(ctx, skip.Room)), nil

	case proto.InboundTypeShuffle:
		var shuffle proto.ShuffleData
		if err := json.Unmarshal(inbound.Data, &shuffle); err != nil {
			return nil, err
		}
		return protoError(h.deps.Queue.SetShuffle(ctx, shuffle.Room, shuffle.Enabled)), nil

	case proto.InboundTypeClearQueue:
		var clear proto.RoomOnlyData
		if err := json.Unmarshal(inbound.Data, &clear); err != nil {
			return nil, err
		}
		return protoError(h.deps.Queue.ClearQueue(ctx, clear.Room)), nil

	case proto.InboundTypePlayback:
		var playback proto.PlaybackData
		if err := json.Unmarshal(inbound.Data, &playback); err != nil {
			return nil, err
		}
		return protoError(h.deps.Queue.SetPlaybackState(ctx, playback.Room, playback.Paused)), nil

	case proto.InboundTypeSetTrack:
		var set proto.SetTrackData
		if err := json.Unmarshal(inbound.Data, &set); err != nil {
			return nil, err
		}
		return protoError(h.deps.Queue.SetCurrentTrack(ctx, set.Room, set.URI, set.PositionMs, set.Paused)), nil

	case proto.InboundTypeChat:
		var chat proto.ChatData
		if err := json.Unmarshal(inbound.Data, &chat); err != nil {
			return nil, err
		}
		if !s.chatLimit.allow() {
			return &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "chat rate limit exceeded"}, nil
		}
		return protoError(h.deps.Chat.Relay(ctx, chat.Room, s.client.User, chat.Text)), nil

	case proto.InboundTypeCheckVisibility:
		var check proto.RoomOnlyData
		if err := json.Unmarshal(inbound.Data, &check); err != nil {
			return nil, err
		}
		visibility, err := h.deps.Sessions.Visibility(ctx, check.Room)
		if err != nil {
			return protoError(err), nil
		}
		h.deps.Hub.EmitTo(s.client, &core.Event{
			Kind:       core.EventVisibility,
			Room:       check.Room,
			Visibility: visibility,
		})
		return nil, nil

	case proto.InboundTypeListRooms:
		return protoError(h.deps.Dispatch.Directory(ctx, core.ScopeRequester, s.client)), nil

	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

// protoError converts a service error into a wire error; nil stays nil.
func protoError(err error) *proto.Error {
	if err == nil {
		return nil
	}
	var cerr *core.CoreError
	if errors.As(err, &cerr) {
		return &proto.Error{Code: cerr.Code, Msg: cerr.Message}
	}
	return &proto.Error{Code: core.ErrCodeUnavailable, Msg: "internal error"}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomState:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomFullInfo,
			Data:  snapshotData(event.Snapshot),
		}
	case core.EventDirectory:
		rooms := make([]proto.RoomSummary, 0, len(event.Rooms))
		for _, summary := range event.Rooms {
			rooms = append(rooms, proto.RoomSummary{
				ID:          summary.ID,
				Name:        summary.Name,
				Visibility:  string(summary.Visibility),
				MemberCount: summary.MemberCount,
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventAvailableRooms,
			Data:  proto.EventAvailableRoomsData{Rooms: rooms},
		}
	case core.EventRoomCreated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomCreated,
			Data:  proto.EventRoomCreatedData{Room: event.RoomID},
		}
	case core.EventVisibility:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventCheckPrivate,
			Data: proto.EventCheckPrivateData{
				Room:    event.Room,
				Private: event.Visibility == store.VisibilityPrivate,
			},
		}
	case core.EventChat:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChat,
			Data: proto.EventChatData{
				Room: event.Chat.Room,
				User: event.Chat.From,
				Text: event.Chat.Text,
				TS:   event.Chat.SentAt.Unix(),
			},
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

func snapshotData(snapshot *core.RoomSnapshot) proto.EventRoomFullInfoData {
	if snapshot == nil {
		return proto.EventRoomFullInfoData{}
	}
	data := proto.EventRoomFullInfoData{
		ID:             snapshot.ID,
		Name:           snapshot.Name,
		Visibility:     string(snapshot.Visibility),
		Members:        snapshot.Members,
		Queue:          wireTracks(snapshot.Queue),
		ShuffledQueue:  wireTracks(snapshot.ShuffledQueue),
		ShuffleEnabled: snapshot.ShuffleEnabled,
	}
	if snapshot.CurrentTrack != nil {
		data.CurrentTrack = &proto.CurrentTrack{
			URI:        snapshot.CurrentTrack.URI,
			PositionMs: snapshot.CurrentTrack.PositionMs,
			Paused:     snapshot.CurrentTrack.Paused,
			Timestamp:  snapshot.CurrentTrack.Timestamp.Unix(),
		}
	}
	return data
}

func wireTracks(tracks []store.Track) []proto.Track {
	out := make([]proto.Track, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, proto.Track{
			URI:     track.URI,
			Title:   track.Title,
			Artist:  track.Artist,
			AddedBy: track.AddedBy,
		})
	}
	return out
}
