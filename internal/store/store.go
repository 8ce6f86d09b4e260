package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a room id does not resolve.
	ErrNotFound = errors.New("room not found")
	// ErrConflict is returned when a compare-and-swap update loses against a concurrent write.
	ErrConflict = errors.New("concurrent room update")
)

// Visibility controls whether a room is listed openly or gated by a secret.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Track is a queued playback item. The URI is its identity for queue
// membership and removal; the rest is display metadata.
type Track struct {
	URI     string `json:"uri"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	AddedBy string `json:"added_by,omitempty"`
}

// CurrentTrack describes what a room is playing right now. Timestamp is
// the server time at which position/paused state was last set, so clients
// can extrapolate the playback position.
type CurrentTrack struct {
	URI        string    `json:"uri"`
	PositionMs int64     `json:"position_ms"`
	Paused     bool      `json:"paused"`
	Timestamp  time.Time `json:"timestamp"`
}

// Room is the persisted room document. Queue holds tracks in insertion
// order; ShuffledQueue is a permutation of the not-yet-played remainder
// used as play order while ShuffleEnabled is set. Every track in
// ShuffledQueue is also present in Queue.
type Room struct {
	ID             string
	Name           string
	Visibility     Visibility
	SecretHash     string // bcrypt hash, empty for public rooms
	CreatorID      string
	Members        []string
	Queue          []Track
	ShuffledQueue  []Track
	ShuffleEnabled bool
	CurrentTrack   *CurrentTrack
	Version        int64
	CreatedAt      time.Time
}

// RoomPatch is a partial field replacement for a room document. Nil
// fields are left untouched. CurrentTrack is a double pointer so that
// "set to null" is expressible.
type RoomPatch struct {
	Name           *string
	Members        *[]string
	Queue          *[]Track
	ShuffledQueue  *[]Track
	ShuffleEnabled *bool
	CurrentTrack   **CurrentTrack
}

// Empty reports whether the patch changes nothing.
func (p RoomPatch) Empty() bool {
	return p.Name == nil && p.Members == nil && p.Queue == nil &&
		p.ShuffledQueue == nil && p.ShuffleEnabled == nil && p.CurrentTrack == nil
}

// RoomStore handles room document persistence. Updates must be applied
// atomically per call; concurrent updates for the same room id are
// detected through the version check and reported as ErrConflict.
type RoomStore interface {
	// Get retrieves a room by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Room, error)

	// Create persists a new room.
	Create(ctx context.Context, room *Room) (*Room, error)

	// Update applies a partial field replacement against the given
	// version of the document. Returns ErrConflict if the stored
	// version has moved on, ErrNotFound if the room is gone.
	Update(ctx context.Context, id string, version int64, patch RoomPatch) (*Room, error)

	// ListAll returns every room, ordered by creation time.
	ListAll(ctx context.Context) ([]*Room, error)

	// Close closes the underlying database connection.
	Close() error
}
