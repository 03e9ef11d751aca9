// Package models defines the domain types shared by the Spotify client,
// the persistence layer, and the playlist sync engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackID is an opaque, stable Spotify track identifier.
type TrackID string

// String returns the ID as a plain string.
func (id TrackID) String() string {
	return string(id)
}

// Track is a track as seen by the sync engine.
// Name and Artist are only used for logging.
type Track struct {
	ID     TrackID
	Name   string
	Artist string // Comma-separated artist names
}

// Credential holds a user's Spotify OAuth tokens.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // Zero when the expiry is unknown
}

// Expired reports whether the access token has expired at now.
// A credential with an unknown expiry is never considered expired.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// User is a registered listener whose playlists are kept in sync.
type User struct {
	ID          string // Spotify user ID
	DisplayName string
	Credential  Credential
}

// PlaylistRef identifies a managed remote playlist and its owner.
type PlaylistRef struct {
	ID               uuid.UUID
	UserID           string
	RemotePlaylistID string
	Name             string
}

// ListeningState is what a user is playing now and played recently.
// Current is empty when nothing is playing. Recent is most-recent-first.
type ListeningState struct {
	Current TrackID
	Recent  []TrackID
}

// TrackIDs extracts the IDs of tracks, preserving order.
func TrackIDs(tracks []Track) []TrackID {
	ids := make([]TrackID, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
