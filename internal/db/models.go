package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-replay/internal/models"
)

// User represents a Spotify user and their stored OAuth tokens.
type User struct {
	ID             string
	DisplayName    string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time // nullable
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastSyncAt     *time.Time // nullable
	LastSyncError  *string    // nullable, set when the last sync failed
}

// Credential returns the user's tokens in domain form.
func (u *User) Credential() models.Credential {
	cred := models.Credential{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
	}
	if u.TokenExpiresAt != nil {
		cred.ExpiresAt = *u.TokenExpiresAt
	}
	return cred
}

// SetCredential copies cred onto the user.
func (u *User) SetCredential(cred models.Credential) {
	u.AccessToken = cred.AccessToken
	u.RefreshToken = cred.RefreshToken
	u.TokenExpiresAt = nullableTime(cred.ExpiresAt)
}

// Model converts the row to a domain user.
func (u *User) Model() models.User {
	return models.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Credential:  u.Credential(),
	}
}

// Playlist is a Spotify playlist managed for a user.
type Playlist struct {
	ID                uuid.UUID
	UserID            string
	Name              string
	SpotifyPlaylistID string
	CreatedAt         time.Time
}

// Ref converts the row to a domain playlist reference.
func (p *Playlist) Ref() models.PlaylistRef {
	return models.PlaylistRef{
		ID:               p.ID,
		UserID:           p.UserID,
		RemotePlaylistID: p.SpotifyPlaylistID,
		Name:             p.Name,
	}
}

// Session represents an authenticated web session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
