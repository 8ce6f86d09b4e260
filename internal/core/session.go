package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/tunesync-server/internal/auth"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// CreateRoomSpec carries the caller's room creation request.
type CreateRoomSpec struct {
	Name       string
	Visibility store.Visibility
	Secret     string
	CreatorID  string
}

// SessionManager owns room creation, password-gated join, and leave
// semantics. Membership is a set of stable listener identities, not
// connection ids, so join and leave are idempotent.
type SessionManager struct {
	store    store.RoomStore
	hub      *Hub
	dispatch *Dispatcher
	log      *zerolog.Logger
}

// NewSessionManager builds a session manager.
func NewSessionManager(st store.RoomStore, hub *Hub, dispatch *Dispatcher, logger *zerolog.Logger) *SessionManager {
	return &SessionManager{store: st, hub: hub, dispatch: dispatch, log: logger}
}

// CreateRoom persists a fresh empty room and returns its id to the
// requester. Nothing is broadcast: the room becomes visible when a
// member joins or the directory is explicitly refreshed.
func (m *SessionManager) CreateRoom(ctx context.Context, spec CreateRoomSpec) (string, error) {
	if spec.CreatorID == "" {
		return "", errInvalidInput("creator identity is required")
	}

	visibility := spec.Visibility
	if visibility == "" {
		visibility = store.VisibilityPublic
	}
	if visibility != store.VisibilityPublic && visibility != store.VisibilityPrivate {
		return "", errInvalidInput("visibility must be public or private")
	}

	secretHash := ""
	if visibility == store.VisibilityPrivate {
		hash, err := auth.HashSecret(spec.Secret)
		if err != nil {
			return "", coreError(ErrCodeUnavailable, "failed to protect room secret")
		}
		secretHash = hash
	}

	roomID := "room-" + uuid.NewString()
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = roomID
	}

	room := &store.Room{
		ID:             roomID,
		Name:           name,
		Visibility:     visibility,
		SecretHash:     secretHash,
		CreatorID:      spec.CreatorID,
		Members:        []string{},
		Queue:          []store.Track{},
		ShuffledQueue:  []store.Track{},
		ShuffleEnabled: false,
		CurrentTrack:   nil,
	}

	if _, err := m.store.Create(ctx, room); err != nil {
		return "", storeError(err)
	}

	m.log.Info().Str("room_id", roomID).Str("creator", spec.CreatorID).Str("visibility", string(visibility)).Msg("room created")
	return roomID, nil
}

// JoinRoom adds the listener to the room's member set. Private rooms
// require the matching secret; a mismatch changes nothing and emits
// nothing. Rejoining is a no-op on the member set. On success the
// connection (if given) is tuned into the room before the full-room
// broadcast and the global directory refresh go out.
func (m *SessionManager) JoinRoom(ctx context.Context, roomID, listener, secret string, conn *Client) error {
	if listener == "" {
		return errInvalidInput("listener identity is required")
	}

	room, err := m.store.Get(ctx, roomID)
	if err != nil {
		return storeError(err)
	}

	if room.Visibility == store.VisibilityPrivate {
		if err := auth.CompareSecret(room.SecretHash, secret); err != nil {
			m.log.Debug().Str("room_id", roomID).Str("listener", listener).Msg("join rejected: wrong password")
			return errUnauthorized()
		}
	}

	updated, err := mutateRoom(ctx, m.store, roomID, func(r *store.Room) store.RoomPatch {
		if containsString(r.Members, listener) {
			return store.RoomPatch{}
		}
		members := append(append([]string{}, r.Members...), listener)
		return store.RoomPatch{Members: &members}
	})
	if err != nil {
		return err
	}

	if conn != nil {
		m.hub.Subscribe(conn, roomID)
	}

	m.log.Info().Str("room_id", roomID).Str("listener", listener).Int("members", len(updated.Members)).Msg("listener joined room")

	if err := m.dispatch.RoomState(ctx, roomID, ScopeRoom, nil); err != nil {
		return err
	}
	return m.dispatch.Directory(ctx, ScopeGlobal, nil)
}

// LeaveRoom removes the listener from the member set; absent listeners
// are a no-op. The room is never deleted here even when it empties out.
func (m *SessionManager) LeaveRoom(ctx context.Context, roomID, listener string, conn *Client) error {
	if listener == "" {
		return errInvalidInput("listener identity is required")
	}

	updated, err := mutateRoom(ctx, m.store, roomID, func(r *store.Room) store.RoomPatch {
		if !containsString(r.Members, listener) {
			return store.RoomPatch{}
		}
		members := make([]string, 0, len(r.Members)-1)
		for _, member := range r.Members {
			if member != listener {
				members = append(members, member)
			}
		}
		return store.RoomPatch{Members: &members}
	})
	if err != nil {
		return err
	}

	if conn != nil {
		m.hub.Unsubscribe(conn, roomID)
	}

	m.log.Info().Str("room_id", roomID).Str("listener", listener).Int("members", len(updated.Members)).Msg("listener left room")

	if err := m.dispatch.RoomState(ctx, roomID, ScopeRoom, nil); err != nil {
		return err
	}
	return m.dispatch.Directory(ctx, ScopeGlobal, nil)
}

// Visibility is a read-only accessor for gating the password prompt
// before a join attempt.
func (m *SessionManager) Visibility(ctx context.Context, roomID string) (store.Visibility, error) {
	room, err := m.store.Get(ctx, roomID)
	if err != nil {
		return "", storeError(err)
	}
	return room.Visibility, nil
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
