package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// ChatRelay passes ephemeral messages through to a room's members.
// Nothing is persisted; chat has no durability guarantee.
type ChatRelay struct {
	store store.RoomStore
	hub   *Hub
	log   *zerolog.Logger
	now   func() time.Time
}

// NewChatRelay builds a chat relay.
func NewChatRelay(st store.RoomStore, hub *Hub, logger *zerolog.Logger) *ChatRelay {
	return &ChatRelay{store: st, hub: hub, log: logger, now: time.Now}
}

// Relay forwards the message verbatim to everyone tuned into the room.
func (c *ChatRelay) Relay(ctx context.Context, roomID, sender, text string) error {
	if sender == "" {
		return errInvalidInput("sender identity is required")
	}

	if _, err := c.store.Get(ctx, roomID); err != nil {
		return storeError(err)
	}

	c.hub.EmitRoom(roomID, &Event{
		Kind: EventChat,
		Room: roomID,
		Chat: &ChatMessage{
			Room:   roomID,
			From:   sender,
			Text:   text,
			SentAt: c.now(),
		},
	})
	return nil
}
