package db

import (
	"context"
	"errors"
	"time"

	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

// Store adapts the repositories to sync.Store.
type Store struct {
	db *DB
}

// NewStore creates a Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// ListUsers implements sync.Store.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Users().List(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, len(rows))
	for i := range rows {
		users[i] = rows[i].Model()
	}
	return users, nil
}

// GetUser implements sync.Store. Unknown users map to sync.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	row, err := s.db.Users().Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, sync.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user := row.Model()
	return &user, nil
}

// ListPlaylists implements sync.Store.
func (s *Store) ListPlaylists(ctx context.Context, userID string) ([]models.PlaylistRef, error) {
	rows, err := s.db.Playlists().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs := make([]models.PlaylistRef, len(rows))
	for i := range rows {
		refs[i] = rows[i].Ref()
	}
	return refs, nil
}

// SaveCredential implements sync.Store.
func (s *Store) SaveCredential(ctx context.Context, userID string, cred models.Credential) error {
	return s.db.Users().UpdateToken(ctx, userID, cred)
}

// RecordSync implements sync.Store.
func (s *Store) RecordSync(ctx context.Context, userID string, at time.Time, syncErr error) error {
	return s.db.Users().UpdateLastSync(ctx, userID, at, syncErrorMessage(syncErr))
}

func syncErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
