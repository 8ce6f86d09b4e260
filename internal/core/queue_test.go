package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

func track(uri string) store.Track {
	return store.Track{URI: uri, Title: uri}
}

func queueURIs(tracks []store.Track) []string {
	uris := make([]string, 0, len(tracks))
	for _, tr := range tracks {
		uris = append(uris, tr.URI)
	}
	return uris
}

// Every shuffled entry must also exist in the canonical queue.
func assertSubset(t *testing.T, room *store.Room) {
	t.Helper()

	counts := make(map[string]int)
	for _, tr := range room.Queue {
		counts[tr.URI]++
	}
	for _, tr := range room.ShuffledQueue {
		counts[tr.URI]--
		if counts[tr.URI] < 0 {
			t.Fatalf("shuffled queue holds %q not present in canonical queue %v",
				tr.URI, queueURIs(room.Queue))
		}
	}
}

func TestEnqueueRejectsBlankURI(t *testing.T) {
	f := newFixture(t)
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	err := f.queue.Enqueue(context.Background(), id, store.Track{URI: "   "})
	var cerr *CoreError
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestEnqueueAutoStartsIdleRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	if err := f.queue.Enqueue(ctx, id, track("spotify:track:a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	room := f.room(t, id)
	if room.CurrentTrack == nil || room.CurrentTrack.URI != "spotify:track:a" {
		t.Fatalf("expected auto-started playback, got %+v", room.CurrentTrack)
	}
	if room.CurrentTrack.Paused || room.CurrentTrack.PositionMs != 0 {
		t.Errorf("auto-started track should play from zero: %+v", room.CurrentTrack)
	}
	if len(room.Queue) != 0 {
		t.Errorf("queue should be drained after auto-advance, got %v", queueURIs(room.Queue))
	}
}

func TestEnqueueWhilePlayingKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	for _, uri := range []string{"a", "b", "c"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}

	room := f.room(t, id)
	if room.CurrentTrack == nil || room.CurrentTrack.URI != "a" {
		t.Fatalf("expected %q current, got %+v", "a", room.CurrentTrack)
	}
	if got := queueURIs(room.Queue); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("expected FIFO queue [b c], got %v", got)
	}
}

// Scenario: enqueue three tracks into a playing room, then advance twice.
func TestAdvanceFIFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	if err := f.queue.SetCurrentTrack(ctx, id, "warmup", 0, false); err != nil {
		t.Fatalf("set current track: %v", err)
	}
	for _, uri := range []string{"a", "b", "c"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}

	want := []string{"a", "b", "c"}
	for _, uri := range want {
		if err := f.queue.Advance(ctx, id); err != nil {
			t.Fatalf("advance: %v", err)
		}
		room := f.room(t, id)
		if room.CurrentTrack == nil || room.CurrentTrack.URI != uri {
			t.Fatalf("expected current %q, got %+v", uri, room.CurrentTrack)
		}
	}

	// Draining past the end clears playback.
	if err := f.queue.Advance(ctx, id); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if room := f.room(t, id); room.CurrentTrack != nil {
		t.Fatalf("expected playback cleared, got %+v", room.CurrentTrack)
	}
}

func TestAdvanceOnEmptyRoomIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	version := f.room(t, id).Version
	calls := f.store.updateCalls

	for i := 0; i < 3; i++ {
		if err := f.queue.Advance(ctx, id); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	if got := f.room(t, id).Version; got != version {
		t.Errorf("advance on empty room must not persist, version %d -> %d", version, got)
	}
	if f.store.updateCalls != calls {
		t.Errorf("advance on empty room issued %d updates", f.store.updateCalls-calls)
	}
}

func TestAdvanceWithShuffleRemovesFromBothViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	// Deterministic "shuffle": reverse the queue.
	f.queue.shuffle = func(tracks []store.Track) []store.Track {
		out := make([]store.Track, len(tracks))
		for i, tr := range tracks {
			out[len(tracks)-1-i] = tr
		}
		return out
	}

	if err := f.queue.SetCurrentTrack(ctx, id, "warmup", 0, false); err != nil {
		t.Fatalf("set current track: %v", err)
	}
	for _, uri := range []string{"a", "b", "c"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}
	if err := f.queue.SetShuffle(ctx, id, true); err != nil {
		t.Fatalf("set shuffle: %v", err)
	}

	if err := f.queue.Advance(ctx, id); err != nil {
		t.Fatalf("advance: %v", err)
	}

	room := f.room(t, id)
	if room.CurrentTrack == nil || room.CurrentTrack.URI != "c" {
		t.Fatalf("expected shuffled head %q current, got %+v", "c", room.CurrentTrack)
	}
	if got := queueURIs(room.Queue); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("played track must leave the canonical queue too, got %v", got)
	}
	if got := queueURIs(room.ShuffledQueue); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected shuffled remainder %v", got)
	}
	assertSubset(t, room)
}

func TestShuffleToggleRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	if err := f.queue.SetCurrentTrack(ctx, id, "warmup", 0, false); err != nil {
		t.Fatalf("set current track: %v", err)
	}
	for _, uri := range []string{"a", "b", "c", "d"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}
	before := queueURIs(f.room(t, id).Queue)

	if err := f.queue.SetShuffle(ctx, id, true); err != nil {
		t.Fatalf("enable shuffle: %v", err)
	}
	room := f.room(t, id)
	if !room.ShuffleEnabled || len(room.ShuffledQueue) != len(room.Queue) {
		t.Fatalf("shuffled projection not built: %+v", room)
	}
	assertSubset(t, room)

	if err := f.queue.SetShuffle(ctx, id, false); err != nil {
		t.Fatalf("disable shuffle: %v", err)
	}
	room = f.room(t, id)
	if room.ShuffleEnabled || len(room.ShuffledQueue) != 0 {
		t.Fatalf("disabling shuffle must clear the projection: %+v", room)
	}
	if got := queueURIs(room.Queue); !reflect.DeepEqual(got, before) {
		t.Fatalf("canonical order changed across toggle: %v != %v", got, before)
	}
}

func TestClearQueueEmptiesBothViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	if err := f.queue.SetCurrentTrack(ctx, id, "playing", 0, false); err != nil {
		t.Fatalf("set current track: %v", err)
	}
	for _, uri := range []string{"a", "b"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}
	if err := f.queue.SetShuffle(ctx, id, true); err != nil {
		t.Fatalf("set shuffle: %v", err)
	}

	if err := f.queue.ClearQueue(ctx, id); err != nil {
		t.Fatalf("clear queue: %v", err)
	}

	room := f.room(t, id)
	if len(room.Queue) != 0 || len(room.ShuffledQueue) != 0 {
		t.Fatalf("both views must be emptied, got queue=%v shuffled=%v",
			queueURIs(room.Queue), queueURIs(room.ShuffledQueue))
	}
	if room.CurrentTrack == nil || room.CurrentTrack.URI != "playing" {
		t.Errorf("clearing the queue must not touch the current track, got %+v", room.CurrentTrack)
	}
}

func TestSetPlaybackState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	member := NewClient("c1", "alice")
	f.hub.Register(member)
	f.hub.Subscribe(member, id)

	// Nothing playing: silent no-op, no broadcast.
	if err := f.queue.SetPlaybackState(ctx, id, true); err != nil {
		t.Fatalf("pause empty room: %v", err)
	}
	noEvent(t, member.Events)

	if err := f.queue.SetCurrentTrack(ctx, id, "a", 1500, false); err != nil {
		t.Fatalf("set current track: %v", err)
	}
	drain(member.Events)

	if err := f.queue.SetPlaybackState(ctx, id, true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	room := f.room(t, id)
	if room.CurrentTrack == nil || !room.CurrentTrack.Paused {
		t.Fatalf("expected paused track, got %+v", room.CurrentTrack)
	}
	if room.CurrentTrack.PositionMs != 1500 {
		t.Errorf("pause must keep the position, got %d", room.CurrentTrack.PositionMs)
	}

	ev := mustEvent(t, member.Events, EventRoomState)
	if ev.Snapshot == nil || ev.Snapshot.CurrentTrack == nil || !ev.Snapshot.CurrentTrack.Paused {
		t.Fatalf("broadcast snapshot missing paused state: %+v", ev.Snapshot)
	}
}

func TestSetCurrentTrackOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	for _, uri := range []string{"a", "b"} {
		if err := f.queue.Enqueue(ctx, id, track(uri)); err != nil {
			t.Fatalf("enqueue %s: %v", uri, err)
		}
	}

	if err := f.queue.SetCurrentTrack(ctx, id, "x", 30_000, true); err != nil {
		t.Fatalf("set current track: %v", err)
	}

	room := f.room(t, id)
	got := room.CurrentTrack
	if got == nil || got.URI != "x" || got.PositionMs != 30_000 || !got.Paused {
		t.Fatalf("unexpected current track %+v", got)
	}
	// Queue is untouched by a wholesale override.
	if got := queueURIs(room.Queue); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("queue changed by override: %v", got)
	}
}

// Interleaving every operation must never break the subset invariant.
func TestSubsetInvariantAcrossOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	check := func(step string) {
		t.Helper()
		room := f.room(t, id)
		counts := make(map[string]int)
		for _, tr := range room.Queue {
			counts[tr.URI]++
		}
		for _, tr := range room.ShuffledQueue {
			counts[tr.URI]--
			if counts[tr.URI] < 0 {
				t.Fatalf("%s: shuffled %q missing from canonical %v",
					step, tr.URI, queueURIs(room.Queue))
			}
		}
	}

	ops := []struct {
		name string
		run  func() error
	}{
		{"enqueue a", func() error { return f.queue.Enqueue(ctx, id, track("a")) }},
		{"enqueue b", func() error { return f.queue.Enqueue(ctx, id, track("b")) }},
		{"shuffle on", func() error { return f.queue.SetShuffle(ctx, id, true) }},
		{"enqueue c", func() error { return f.queue.Enqueue(ctx, id, track("c")) }},
		{"advance", func() error { return f.queue.Advance(ctx, id) }},
		{"shuffle off", func() error { return f.queue.SetShuffle(ctx, id, false) }},
		{"shuffle on again", func() error { return f.queue.SetShuffle(ctx, id, true) }},
		{"clear", func() error { return f.queue.ClearQueue(ctx, id) }},
		{"advance empty", func() error { return f.queue.Advance(ctx, id) }},
	}
	for _, op := range ops {
		if err := op.run(); err != nil {
			t.Fatalf("%s: %v", op.name, err)
		}
		check(op.name)
	}
}

func TestEnqueueRetriesOnceOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRoom(t, CreateRoomSpec{CreatorID: "alice"})

	f.store.conflictsLeft = 1
	if err := f.queue.Enqueue(ctx, id, track("a")); err != nil {
		t.Fatalf("enqueue should survive one conflict: %v", err)
	}

	f.store.conflictsLeft = 2
	err := f.queue.Enqueue(ctx, id, track("b"))
	var cerr *CoreError
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeConflict {
		t.Fatalf("expected conflict after retry budget, got %v", err)
	}
}
