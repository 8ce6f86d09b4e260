package core

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// Scope selects the audience of a broadcast.
type Scope int

const (
	// ScopeRequester emits only to the connection that asked.
	ScopeRequester Scope = iota
	// ScopeRoom emits to every connection tuned into the room.
	ScopeRoom
	// ScopeGlobal emits to every connection.
	ScopeGlobal
)

// Dispatcher re-sends full state to an audience. It is stateless: each
// call fetches the current snapshot (or directory) from the store so
// observers always converge on what was last persisted.
type Dispatcher struct {
	store store.RoomStore
	hub   *Hub
	log   *zerolog.Logger
}

// NewDispatcher builds a dispatcher over the given store and hub.
func NewDispatcher(st store.RoomStore, hub *Hub, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: st, hub: hub, log: logger}
}

// RoomState fetches the room and emits its snapshot to the audience.
func (d *Dispatcher) RoomState(ctx context.Context, roomID string, scope Scope, requester *Client) error {
	room, err := d.store.Get(ctx, roomID)
	if err != nil {
		return storeError(err)
	}

	event := &Event{
		Kind:     EventRoomState,
		Room:     roomID,
		Snapshot: SnapshotOf(room),
	}
	d.emit(event, scope, roomID, requester)
	return nil
}

// Directory fetches the room listing and emits it to the audience.
func (d *Dispatcher) Directory(ctx context.Context, scope Scope, requester *Client) error {
	rooms, err := d.store.ListAll(ctx)
	if err != nil {
		return storeError(err)
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, SummaryOf(room))
	}

	event := &Event{
		Kind:  EventDirectory,
		Rooms: summaries,
	}
	d.emit(event, scope, "", requester)
	return nil
}

func (d *Dispatcher) emit(event *Event, scope Scope, roomID string, requester *Client) {
	switch scope {
	case ScopeRequester:
		if requester != nil {
			d.hub.EmitTo(requester, event)
		}
	case ScopeRoom:
		d.hub.EmitRoom(roomID, event)
	case ScopeGlobal:
		d.hub.EmitAll(event)
	}
}
