package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository handles managed playlist database operations.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new playlist. ID is generated if unset.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *Playlist) error {
	if playlist.ID == uuid.Nil {
		playlist.ID = uuid.New()
	}

	query := `
		INSERT INTO playlists (id, user_id, name, spotify_playlist_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		playlist.ID,
		playlist.UserID,
		playlist.Name,
		playlist.SpotifyPlaylistID,
	).Scan(&playlist.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting playlist: %w", err)
	}
	return nil
}

// GetForUser returns the user's oldest playlist.
func (r *PlaylistRepository) GetForUser(ctx context.Context, userID string) (*Playlist, error) {
	query := `
		SELECT id, user_id, name, spotify_playlist_id, created_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at
		LIMIT 1
	`
	var p Playlist
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.SpotifyPlaylistID,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &p, nil
}

// ListForUser returns every playlist owned by a user, oldest first.
func (r *PlaylistRepository) ListForUser(ctx context.Context, userID string) ([]Playlist, error) {
	query := `
		SELECT id, user_id, name, spotify_playlist_id, created_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.SpotifyPlaylistID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	return playlists, nil
}

// UpdateName renames a playlist record.
func (r *PlaylistRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	result, err := r.pool.Exec(ctx, `UPDATE playlists SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("updating playlist name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
