package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// QueueEngine owns the canonical queue and its shuffled projection.
// Invariant: every track in the shuffled queue is also present in the
// canonical queue, and a track played from one view is removed from
// both.
type QueueEngine struct {
	store    store.RoomStore
	dispatch *Dispatcher
	log      *zerolog.Logger
	shuffle  func([]store.Track) []store.Track
	now      func() time.Time
}

// NewQueueEngine builds a queue engine.
func NewQueueEngine(st store.RoomStore, dispatch *Dispatcher, logger *zerolog.Logger) *QueueEngine {
	return &QueueEngine{
		store:    st,
		dispatch: dispatch,
		log:      logger,
		shuffle:  ShuffleTracks,
		now:      time.Now,
	}
}

// Enqueue appends a track to the canonical queue. The shuffled
// projection is not touched mid-session; it is rebuilt only when
// shuffle is toggled. When nothing is playing and the queue was empty,
// playback auto-starts after the append is persisted and broadcast.
func (e *QueueEngine) Enqueue(ctx context.Context, roomID string, track store.Track) error {
	if strings.TrimSpace(track.URI) == "" {
		return errInvalidInput("track uri is required")
	}

	var wasIdle bool
	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		wasIdle = r.CurrentTrack == nil && len(r.Queue) == 0
		queue := append(append([]store.Track{}, r.Queue...), track)
		return store.RoomPatch{Queue: &queue}
	})
	if err != nil {
		return err
	}

	e.log.Debug().Str("room_id", roomID).Str("uri", track.URI).Msg("track enqueued")

	if err := e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil); err != nil {
		return err
	}

	if wasIdle {
		return e.Advance(ctx, roomID)
	}
	return nil
}

// Advance pops the next track and makes it current. With shuffle on it
// pops from the shuffled queue and removes the same track from the
// canonical queue; otherwise it pops the canonical head. When both
// views are empty the current track is cleared, idempotently.
func (e *QueueEngine) Advance(ctx context.Context, roomID string) error {
	var nextURI string
	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		nextURI = ""
		switch {
		case r.ShuffleEnabled && len(r.ShuffledQueue) > 0:
			next := r.ShuffledQueue[0]
			shuffled := append([]store.Track{}, r.ShuffledQueue[1:]...)
			queue := removeFirst(r.Queue, next.URI)
			nextURI = next.URI
			current := currentTrackFor(next.URI, e.now())
			return store.RoomPatch{
				Queue:         &queue,
				ShuffledQueue: &shuffled,
				CurrentTrack:  &current,
			}
		case len(r.Queue) > 0:
			next := r.Queue[0]
			queue := append([]store.Track{}, r.Queue[1:]...)
			nextURI = next.URI
			current := currentTrackFor(next.URI, e.now())
			return store.RoomPatch{
				Queue:        &queue,
				CurrentTrack: &current,
			}
		default:
			if r.CurrentTrack == nil {
				return store.RoomPatch{}
			}
			var cleared *store.CurrentTrack
			return store.RoomPatch{CurrentTrack: &cleared}
		}
	})
	if err != nil {
		return err
	}

	if nextURI != "" {
		e.log.Debug().Str("room_id", roomID).Str("uri", nextURI).Msg("advanced to next track")
	}

	return e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil)
}

// SetShuffle toggles the shuffled projection. Enabling rebuilds it as a
// uniformly random permutation of the current queue; disabling clears
// it and the canonical queue becomes the play order again.
func (e *QueueEngine) SetShuffle(ctx context.Context, roomID string, enabled bool) error {
	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		shuffled := []store.Track{}
		if enabled && len(r.Queue) > 0 {
			shuffled = e.shuffle(r.Queue)
		}
		return store.RoomPatch{
			ShuffleEnabled: &enabled,
			ShuffledQueue:  &shuffled,
		}
	})
	if err != nil {
		return err
	}

	e.log.Debug().Str("room_id", roomID).Bool("enabled", enabled).Msg("shuffle toggled")

	return e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil)
}

// ClearQueue empties both queue views together so the subset invariant
// cannot be violated by stale shuffled entries.
func (e *QueueEngine) ClearQueue(ctx context.Context, roomID string) error {
	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		queue := []store.Track{}
		shuffled := []store.Track{}
		return store.RoomPatch{
			Queue:         &queue,
			ShuffledQueue: &shuffled,
		}
	})
	if err != nil {
		return err
	}

	e.log.Debug().Str("room_id", roomID).Msg("queue cleared")

	return e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil)
}

// SetPlaybackState updates only the paused flag of the current track,
// refreshing its timestamp. A room with nothing playing is a silent
// no-op.
func (e *QueueEngine) SetPlaybackState(ctx context.Context, roomID string, paused bool) error {
	var changed bool
	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		changed = false
		if r.CurrentTrack == nil {
			return store.RoomPatch{}
		}
		changed = true
		track := *r.CurrentTrack
		track.Paused = paused
		track.Timestamp = e.now()
		current := &track
		return store.RoomPatch{CurrentTrack: &current}
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil)
}

// SetCurrentTrack replaces the current track wholesale, independent of
// either queue view. Used when a member selects or seeks a track
// outside the queue flow.
func (e *QueueEngine) SetCurrentTrack(ctx context.Context, roomID, uri string, positionMs int64, paused bool) error {
	if strings.TrimSpace(uri) == "" {
		return errInvalidInput("track uri is required")
	}

	_, err := mutateRoom(ctx, e.store, roomID, func(r *store.Room) store.RoomPatch {
		current := &store.CurrentTrack{
			URI:        uri,
			PositionMs: positionMs,
			Paused:     paused,
			Timestamp:  e.now(),
		}
		return store.RoomPatch{CurrentTrack: &current}
	})
	if err != nil {
		return err
	}

	return e.dispatch.RoomState(ctx, roomID, ScopeRoom, nil)
}

func currentTrackFor(uri string, now time.Time) *store.CurrentTrack {
	return &store.CurrentTrack{
		URI:        uri,
		PositionMs: 0,
		Paused:     false,
		Timestamp:  now,
	}
}

// removeFirst drops the first track with the given uri, leaving any
// later duplicates in place.
func removeFirst(tracks []store.Track, uri string) []store.Track {
	out := make([]store.Track, 0, len(tracks))
	removed := false
	for _, track := range tracks {
		if !removed && track.URI == uri {
			removed = true
			continue
		}
		out = append(out, track)
	}
	return out
}
