package core

import "github.com/vovakirdan/tunesync-server/internal/store"

// RoomSnapshot is the full serializable room state sent to clients on
// every mutation. The access secret is never part of it.
type RoomSnapshot struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Visibility     store.Visibility    `json:"visibility"`
	Members        []string            `json:"members"`
	Queue          []store.Track       `json:"queue"`
	ShuffledQueue  []store.Track       `json:"shuffled_queue"`
	ShuffleEnabled bool                `json:"shuffle_enabled"`
	CurrentTrack   *store.CurrentTrack `json:"current_track"`
}

// RoomSummary is a directory entry for the global room listing.
type RoomSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Visibility  store.Visibility `json:"visibility"`
	MemberCount int              `json:"member_count"`
}

// SnapshotOf builds the broadcast payload for a room document.
func SnapshotOf(room *store.Room) *RoomSnapshot {
	return &RoomSnapshot{
		ID:             room.ID,
		Name:           room.Name,
		Visibility:     room.Visibility,
		Members:        append([]string{}, room.Members...),
		Queue:          append([]store.Track{}, room.Queue...),
		ShuffledQueue:  append([]store.Track{}, room.ShuffledQueue...),
		ShuffleEnabled: room.ShuffleEnabled,
		CurrentTrack:   room.CurrentTrack,
	}
}

// SummaryOf builds the directory entry for a room document.
func SummaryOf(room *store.Room) RoomSummary {
	return RoomSummary{
		ID:          room.ID,
		Name:        room.Name,
		Visibility:  room.Visibility,
		MemberCount: len(room.Members),
	}
}
