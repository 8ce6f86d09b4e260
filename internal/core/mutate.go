package core

import (
	"context"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

// mutateRoom runs the fetch-apply-persist cycle for one room. apply
// inspects the current document and returns the patch to persist; a
// nil-equivalent (empty) patch means nothing changed and the document
// is returned as-is. A lost compare-and-swap gets exactly one local
// retry (re-fetch, reapply, re-persist) before the conflict surfaces.
func mutateRoom(ctx context.Context, st store.RoomStore, roomID string, apply func(*store.Room) store.RoomPatch) (*store.Room, error) {
	for attempt := 0; attempt < 2; attempt++ {
		room, err := st.Get(ctx, roomID)
		if err != nil {
			return nil, storeError(err)
		}

		patch := apply(room)
		if patch.Empty() {
			return room, nil
		}

		updated, err := st.Update(ctx, roomID, room.Version, patch)
		if err == nil {
			return updated, nil
		}
		if cerr := storeError(err); cerr.Code != ErrCodeConflict || attempt > 0 {
			return nil, cerr
		}
	}
	// Unreachable: the loop either returns or exits via the conflict branch.
	return nil, coreError(ErrCodeConflict, "concurrent update, try again")
}
