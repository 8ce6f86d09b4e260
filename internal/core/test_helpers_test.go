package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got kind %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

// memStore is an in-memory RoomStore for exercising the core without
// SQLite. conflictsLeft makes the next N updates lose their CAS.
type memStore struct {
	mu            sync.Mutex
	rooms         map[string]*store.Room
	conflictsLeft int
	updateCalls   int
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]*store.Room)}
}

func (m *memStore) Get(_ context.Context, id string) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (m *memStore) Create(_ context.Context, room *store.Room) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *room
	if copied.Version == 0 {
		copied.Version = 1
	}
	m.rooms[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (m *memStore) Update(_ context.Context, id string, version int64, patch store.RoomPatch) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	room, ok := m.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return nil, store.ErrConflict
	}
	if room.Version != version {
		return nil, store.ErrConflict
	}

	if patch.Name != nil {
		room.Name = *patch.Name
	}
	if patch.Members != nil {
		room.Members = append([]string{}, (*patch.Members)...)
	}
	if patch.Queue != nil {
		room.Queue = append([]store.Track{}, (*patch.Queue)...)
	}
	if patch.ShuffledQueue != nil {
		room.ShuffledQueue = append([]store.Track{}, (*patch.ShuffledQueue)...)
	}
	if patch.ShuffleEnabled != nil {
		room.ShuffleEnabled = *patch.ShuffleEnabled
	}
	if patch.CurrentTrack != nil {
		room.CurrentTrack = *patch.CurrentTrack
	}
	room.Version++

	copied := *room
	return &copied, nil
}

func (m *memStore) ListAll(_ context.Context) ([]*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]*store.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		copied := *room
		rooms = append(rooms, &copied)
	}
	return rooms, nil
}

func (m *memStore) Close() error { return nil }

type fixture struct {
	store    *memStore
	hub      *Hub
	dispatch *Dispatcher
	sessions *SessionManager
	queue    *QueueEngine
	chat     *ChatRelay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := newMemStore()
	hub := NewHub()
	logger := zerolog.New(nil)
	dispatch := NewDispatcher(st, hub, &logger)
	return &fixture{
		store:    st,
		hub:      hub,
		dispatch: dispatch,
		sessions: NewSessionManager(st, hub, dispatch, &logger),
		queue:    NewQueueEngine(st, dispatch, &logger),
		chat:     NewChatRelay(st, hub, &logger),
	}
}

func (f *fixture) createRoom(t *testing.T, spec CreateRoomSpec) string {
	t.Helper()

	id, err := f.sessions.CreateRoom(context.Background(), spec)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return id
}

func (f *fixture) room(t *testing.T, id string) *store.Room {
	t.Helper()

	room, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	return room
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
