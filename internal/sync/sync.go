// Package sync keeps each user's Replay playlist in step with their Spotify
// listening activity.
//
// The package is layered leaves first: ComputeNewTracks and ComputeEviction
// are pure, the Reconciler applies them to one playlist, and the Orchestrator
// drives the Reconciler across every registered user.
package sync

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/justestif/go-spotify-replay/internal/models"
)

// Common errors.
var (
	// ErrUserNotFound is returned when a sync is requested for an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoRefreshToken is returned when an expired credential cannot be refreshed.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrPartialMutation is returned when tracks were evicted from a playlist
	// but the following insert failed, leaving the playlist short.
	ErrPartialMutation = errors.New("playlist left partially updated")
)

// DefaultRecentLimit is how many recently played tracks are fetched per user.
const DefaultRecentLimit = 50

// MusicClient is the slice of the Spotify Web API the sync engine needs,
// already authenticated as one user.
type MusicClient interface {
	// CurrentlyPlaying returns the track playing now, or nil if none.
	CurrentlyPlaying(ctx context.Context) (*models.Track, error)

	// RecentlyPlayed returns up to limit tracks, most recent first.
	RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error)

	// PlaylistTracks yields the playlist's track IDs one page at a time.
	// Each range over the sequence starts again from the first page.
	PlaylistTracks(ctx context.Context, playlistID string) iter.Seq2[[]models.TrackID, error]

	// AddTracks inserts ids at position, keeping their relative order.
	AddTracks(ctx context.Context, playlistID string, ids []models.TrackID, position int) error

	// RemoveTracks removes every occurrence of ids from the playlist.
	RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error
}

// ClientFactory creates a MusicClient authenticated with a credential.
type ClientFactory interface {
	NewClient(ctx context.Context, cred models.Credential) (MusicClient, error)
}

// TokenRefresher exchanges a refresh token for a fresh credential.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Credential, error)
}

// Store is the user and playlist record store.
type Store interface {
	// ListUsers returns every registered user.
	ListUsers(ctx context.Context) ([]models.User, error)

	// GetUser returns a single user, or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// ListPlaylists returns the managed playlists owned by a user.
	ListPlaylists(ctx context.Context, userID string) ([]models.PlaylistRef, error)

	// SaveCredential persists a refreshed credential.
	SaveCredential(ctx context.Context, userID string, cred models.Credential) error

	// RecordSync stores the outcome of a user's latest sync. syncErr is nil on success.
	RecordSync(ctx context.Context, userID string, at time.Time, syncErr error) error
}
