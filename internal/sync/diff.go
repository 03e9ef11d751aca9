package sync

import "github.com/justestif/go-spotify-replay/internal/models"

// TrackSet is an unordered set of track IDs.
type TrackSet map[models.TrackID]struct{}

// NewTrackSet builds a set from ids.
func NewTrackSet(ids []models.TrackID) TrackSet {
	set := make(TrackSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s TrackSet) Contains(id models.TrackID) bool {
	_, ok := s[id]
	return ok
}

// ComputeNewTracks returns the tracks that should be inserted into a playlist
// already containing existing, in insertion priority order.
//
// The currently playing track (empty when nothing plays) comes first so that
// it surfaces at the top even before the recently played feed catches up.
// Recent tracks follow in the order given. The result never contains an ID
// from existing and never contains the same ID twice.
func ComputeNewTracks(current models.TrackID, recent []models.TrackID, existing TrackSet) []models.TrackID {
	newTracks := make([]models.TrackID, 0, len(recent)+1)
	seen := make(TrackSet, len(recent)+1)

	if current != "" && !existing.Contains(current) {
		newTracks = append(newTracks, current)
		seen[current] = struct{}{}
	}

	for _, id := range recent {
		if id == "" || existing.Contains(id) || seen.Contains(id) {
			continue
		}
		newTracks = append(newTracks, id)
		seen[id] = struct{}{}
	}

	return newTracks
}
