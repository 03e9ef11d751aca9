package sync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/justestif/go-spotify-replay/internal/models"
)

// Reconciler brings a single playlist up to date with a listening state.
// It holds no per-playlist state; every run reads a fresh snapshot.
type Reconciler struct {
	capacity int
	logger   logrus.FieldLogger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithCapacity sets the maximum playlist size. Non-positive values are ignored.
func WithCapacity(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithReconcilerLogger sets the logger used for per-playlist decisions.
func WithReconcilerLogger(logger logrus.FieldLogger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a Reconciler with DefaultCapacity.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		capacity: DefaultCapacity,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capacity returns the configured maximum playlist size.
func (r *Reconciler) Capacity() int {
	return r.capacity
}

// ReconcileResult summarizes one playlist update.
type ReconcileResult struct {
	PlaylistID       string
	RemotePlaylistID string
	SnapshotSize     int // Tracks in the playlist before this run
	Added            []models.TrackID
	Removed          []models.TrackID
}

// Changed reports whether the run mutated the remote playlist.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Reconcile merges the listening state into playlist.
//
// It reads the whole playlist, inserts the new tracks at the front, and evicts
// the oldest tracks first if the insert would push the playlist over capacity.
// Nothing is written when there is nothing new. Remote failures are returned
// as-is; an eviction that succeeds before a failed insert is not rolled back
// and is reported as ErrPartialMutation.
func (r *Reconciler) Reconcile(ctx context.Context, client MusicClient, playlist models.PlaylistRef, state models.ListeningState) (*ReconcileResult, error) {
	log := r.logger.WithFields(logrus.Fields{
		"user_id":     playlist.UserID,
		"playlist_id": playlist.RemotePlaylistID,
	})

	snapshot, err := fetchSnapshot(ctx, client, playlist.RemotePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist %s: %w", playlist.RemotePlaylistID, err)
	}
	log.WithField("tracks", len(snapshot)).Debug("fetched playlist snapshot")

	result := &ReconcileResult{
		PlaylistID:       playlist.ID.String(),
		RemotePlaylistID: playlist.RemotePlaylistID,
		SnapshotSize:     len(snapshot),
	}

	newTracks := ComputeNewTracks(state.Current, state.Recent, NewTrackSet(snapshot))
	if len(newTracks) == 0 {
		log.Debug("no new tracks to add")
		return result, nil
	}

	toRemove := ComputeEviction(snapshot, len(newTracks), r.capacity)
	if over := Overflow(len(newTracks), r.capacity); over > 0 {
		log.WithFields(logrus.Fields{
			"new_tracks": len(newTracks),
			"capacity":   r.capacity,
			"overflow":   over,
		}).Warn("new tracks exceed playlist capacity, playlist will be oversized")
	}

	if len(toRemove) > 0 {
		log.WithField("tracks", len(toRemove)).Debug("evicting oldest tracks")
		if err := client.RemoveTracks(ctx, playlist.RemotePlaylistID, toRemove); err != nil {
			return nil, fmt.Errorf("removing tracks from %s: %w", playlist.RemotePlaylistID, err)
		}
		result.Removed = toRemove
	}

	log.WithField("tracks", len(newTracks)).Debug("adding new tracks to top of playlist")
	if err := client.AddTracks(ctx, playlist.RemotePlaylistID, newTracks, 0); err != nil {
		if len(result.Removed) > 0 {
			return result, fmt.Errorf("%w: removed %d tracks but adding to %s failed: %w",
				ErrPartialMutation, len(result.Removed), playlist.RemotePlaylistID, err)
		}
		return nil, fmt.Errorf("adding tracks to %s: %w", playlist.RemotePlaylistID, err)
	}
	result.Added = newTracks

	log.WithFields(logrus.Fields{
		"added":   len(result.Added),
		"removed": len(result.Removed),
	}).Info("playlist updated")

	return result, nil
}

// fetchSnapshot follows pagination until the last page and returns every
// track ID in playlist order.
func fetchSnapshot(ctx context.Context, client MusicClient, playlistID string) ([]models.TrackID, error) {
	var snapshot []models.TrackID
	for page, err := range client.PlaylistTracks(ctx, playlistID) {
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, page...)
	}
	return snapshot, nil
}
