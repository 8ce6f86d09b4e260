package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChatRelayFanout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{Name: "party", CreatorID: "alice"})

	sent := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.chat.now = func() time.Time { return sent }

	a := NewClient("c1", "alice")
	b := NewClient("c2", "bob")
	outsider := NewClient("c3", "carol")
	for _, c := range []*Client{a, b, outsider} {
		f.hub.Register(c)
	}
	f.hub.Subscribe(a, id)
	f.hub.Subscribe(b, id)

	if err := f.chat.Relay(ctx, id, "alice", "tune in"); err != nil {
		t.Fatalf("relay: %v", err)
	}

	for _, c := range []*Client{a, b} {
		ev := mustEvent(t, c.Events, EventChat)
		if ev.Chat == nil || ev.Chat.From != "alice" || ev.Chat.Text != "tune in" {
			t.Fatalf("unexpected chat payload %+v", ev.Chat)
		}
		if !ev.Chat.SentAt.Equal(sent) {
			t.Errorf("unexpected timestamp %v", ev.Chat.SentAt)
		}
	}
	noEvent(t, outsider.Events)
}

func TestChatRelayRejectsAnonymous(t *testing.T) {
	f := newFixture(t)
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	err := f.chat.Relay(context.Background(), id, "", "hi")
	var cerr *CoreError
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestChatRelayUnknownRoom(t *testing.T) {
	f := newFixture(t)

	err := f.chat.Relay(context.Background(), "ghost", "alice", "hi")
	var cerr *CoreError
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found, got %v", err)
	}
}
