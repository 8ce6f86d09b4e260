package core

import (
	"time"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomState carries the full room snapshot after a mutation.
	EventRoomState EventKind = iota
	// EventDirectory carries the listing of all rooms.
	EventDirectory
	// EventRoomCreated tells the requester the id of a freshly created room.
	EventRoomCreated
	// EventVisibility answers a visibility probe before a join attempt.
	EventVisibility
	// EventChat relays an ephemeral chat message to room members.
	EventChat
	// EventError notifies the requester about a domain error.
	EventError
)

// ChatMessage is an ephemeral room message. It is never persisted.
type ChatMessage struct {
	Room   string
	From   string
	Text   string
	SentAt time.Time
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind       EventKind
	Room       string
	Snapshot   *RoomSnapshot
	Rooms      []RoomSummary
	RoomID     string
	Visibility store.Visibility
	Chat       *ChatMessage
	Error      *CoreError
}
