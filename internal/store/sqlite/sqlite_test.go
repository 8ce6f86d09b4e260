package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &store.Room{
		ID:         "room-1",
		Name:       "friday night",
		Visibility: store.VisibilityPrivate,
		SecretHash: "hash",
		CreatorID:  "alice",
		Members:    []string{"alice"},
		Queue: []store.Track{
			{URI: "spotify:track:a", Title: "First"},
			{URI: "spotify:track:b", Title: "Second"},
		},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if created.Version != 1 {
		t.Errorf("expected version 1, got %d", created.Version)
	}

	got, err := s.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Name != "friday night" || got.Visibility != store.VisibilityPrivate {
		t.Errorf("unexpected room: %+v", got)
	}
	if len(got.Members) != 1 || got.Members[0] != "alice" {
		t.Errorf("unexpected members: %v", got.Members)
	}
	if len(got.Queue) != 2 || got.Queue[0].URI != "spotify:track:a" {
		t.Errorf("unexpected queue: %v", got.Queue)
	}
	if got.CurrentTrack != nil {
		t.Errorf("expected nil current track, got %+v", got.CurrentTrack)
	}
	if got.SecretHash != "hash" {
		t.Errorf("expected secret hash to round-trip, got %q", got.SecretHash)
	}
}

func TestGetMissingRoom(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.Create(ctx, &store.Room{
		ID:        "room-2",
		Name:      "jam",
		CreatorID: "bob",
		Queue:     []store.Track{{URI: "t:1"}},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	members := []string{"bob", "carol"}
	current := &store.CurrentTrack{
		URI:       "t:1",
		Paused:    false,
		Timestamp: time.Now(),
	}
	updated, err := s.Update(ctx, room.ID, room.Version, store.RoomPatch{
		Members:      &members,
		CurrentTrack: &current,
	})
	if err != nil {
		t.Fatalf("update room: %v", err)
	}

	if updated.Version != room.Version+1 {
		t.Errorf("expected version bump to %d, got %d", room.Version+1, updated.Version)
	}
	if len(updated.Members) != 2 {
		t.Errorf("unexpected members: %v", updated.Members)
	}
	// Untouched fields survive the patch.
	if updated.Name != "jam" || len(updated.Queue) != 1 {
		t.Errorf("patch clobbered untouched fields: %+v", updated)
	}
	if updated.CurrentTrack == nil || updated.CurrentTrack.URI != "t:1" {
		t.Errorf("unexpected current track: %+v", updated.CurrentTrack)
	}

	// Setting current track back to null.
	var nilTrack *store.CurrentTrack
	updated, err = s.Update(ctx, updated.ID, updated.Version, store.RoomPatch{
		CurrentTrack: &nilTrack,
	})
	if err != nil {
		t.Fatalf("clear current track: %v", err)
	}
	if updated.CurrentTrack != nil {
		t.Errorf("expected nil current track, got %+v", updated.CurrentTrack)
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.Create(ctx, &store.Room{ID: "room-3", Name: "r", CreatorID: "x"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	name := "renamed"
	if _, err := s.Update(ctx, room.ID, room.Version, store.RoomPatch{Name: &name}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Second writer still holds the old version.
	_, err = s.Update(ctx, room.ID, room.Version, store.RoomPatch{Name: &name})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// A deleted room surfaces as not found, not conflict.
	_, err = s.Update(ctx, "ghost", 1, store.RoomPatch{Name: &name})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Create(ctx, &store.Room{ID: id, Name: id, CreatorID: "x"}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	rooms, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	for i, id := range []string{"a", "b", "c"} {
		if rooms[i].ID != id {
			t.Errorf("expected %s at index %d, got %s", id, i, rooms[i].ID)
		}
	}
}
