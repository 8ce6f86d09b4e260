package core

import (
	"math/rand/v2"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

// ShuffleTracks returns a uniformly random permutation of tracks. The
// input slice is left untouched.
func ShuffleTracks(tracks []store.Track) []store.Track {
	out := make([]store.Track, len(tracks))
	copy(out, tracks)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
