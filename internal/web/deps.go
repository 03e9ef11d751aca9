package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-replay/internal/db"
	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/spotify"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

// Authenticator runs the OAuth authorization code flow.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, expectedState string, r *http.Request) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credential, error)
}

// SpotifyAPI is the part of the Spotify API the web pages call directly.
type SpotifyAPI interface {
	CurrentUser(ctx context.Context) (*spotify.Profile, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (string, error)
	RenamePlaylist(ctx context.Context, playlistID, name string) error
}

// ClientSource builds a SpotifyAPI for a user's token.
type ClientSource func(token *oauth2.Token) SpotifyAPI

// FactorySource adapts a spotify.Factory to a ClientSource.
func FactorySource(f *spotify.Factory) ClientSource {
	return func(token *oauth2.Token) SpotifyAPI {
		return f.ForToken(token)
	}
}

// Syncer runs an on-demand sync for one user.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) (*sync.UserReport, error)
}

// Repository is the persistence the handlers need.
// Lookups of missing rows return db.ErrNotFound.
type Repository interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	UpsertUser(ctx context.Context, user *db.User) error
	UpdateToken(ctx context.Context, id string, cred models.Credential) error
	GetPlaylist(ctx context.Context, userID string) (*db.Playlist, error)
	ListPlaylists(ctx context.Context, userID string) ([]db.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist *db.Playlist) error
	RenamePlaylist(ctx context.Context, id uuid.UUID, name string) error
}

// dbRepository backs Repository with PostgreSQL.
type dbRepository struct {
	database *db.DB
}

// NewRepository returns a Repository over database.
func NewRepository(database *db.DB) Repository {
	return &dbRepository{database: database}
}

func (r *dbRepository) GetUser(ctx context.Context, id string) (*db.User, error) {
	return r.database.Users().Get(ctx, id)
}

func (r *dbRepository) UpsertUser(ctx context.Context, user *db.User) error {
	return r.database.Users().Upsert(ctx, user)
}

func (r *dbRepository) UpdateToken(ctx context.Context, id string, cred models.Credential) error {
	return r.database.Users().UpdateToken(ctx, id, cred)
}

func (r *dbRepository) GetPlaylist(ctx context.Context, userID string) (*db.Playlist, error) {
	return r.database.Playlists().GetForUser(ctx, userID)
}

func (r *dbRepository) ListPlaylists(ctx context.Context, userID string) ([]db.Playlist, error) {
	return r.database.Playlists().ListForUser(ctx, userID)
}

func (r *dbRepository) CreatePlaylist(ctx context.Context, playlist *db.Playlist) error {
	return r.database.Playlists().Create(ctx, playlist)
}

func (r *dbRepository) RenamePlaylist(ctx context.Context, id uuid.UUID, name string) error {
	return r.database.Playlists().UpdateName(ctx, id, name)
}
