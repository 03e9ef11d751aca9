package sync

import "github.com/justestif/go-spotify-replay/internal/models"

// DefaultCapacity is the maximum number of tracks a managed playlist holds.
const DefaultCapacity = 100

// ComputeEviction returns the tracks to remove from existing so that adding
// numNew tracks keeps the playlist at or under capacity.
//
// New tracks are inserted at the front, so the tail of existing holds the
// oldest entries and is evicted first. numNew is not clipped: when it alone
// exceeds capacity, every existing track is returned and the playlist still
// ends up numNew-capacity tracks over the limit.
func ComputeEviction(existing []models.TrackID, numNew, capacity int) []models.TrackID {
	total := len(existing) + numNew
	if total <= capacity {
		return nil
	}

	excess := min(total-capacity, len(existing))
	evicted := make([]models.TrackID, excess)
	copy(evicted, existing[len(existing)-excess:])
	return evicted
}

// Overflow returns how far over capacity a playlist ends up after adding
// numNew tracks with full eviction. Zero unless numNew exceeds capacity.
func Overflow(numNew, capacity int) int {
	if numNew <= capacity {
		return 0
	}
	return numNew - capacity
}
