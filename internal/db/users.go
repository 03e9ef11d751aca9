package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-replay/internal/models"
)

const userColumns = `id, display_name, access_token, refresh_token, token_expires_at,
	created_at, updated_at, last_sync_at, last_sync_error`

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.AccessToken,
		&user.RefreshToken,
		&user.TokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSyncAt,
		&user.LastSyncError,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// List returns every user, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Upsert creates a user or updates the profile and tokens of an existing one.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, display_name, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.DisplayName,
		user.AccessToken,
		user.RefreshToken,
		user.TokenExpiresAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// UpdateToken stores a refreshed credential.
func (r *UserRepository) UpdateToken(ctx context.Context, id string, cred models.Credential) error {
	query := `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, cred.AccessToken, cred.RefreshToken, nullableTime(cred.ExpiresAt))
	if err != nil {
		return fmt.Errorf("updating token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastSync records when a user was last synced and why it failed,
// if it did. A nil syncErr clears the stored error.
func (r *UserRepository) UpdateLastSync(ctx context.Context, id string, syncTime time.Time, syncErr *string) error {
	query := `
		UPDATE users
		SET last_sync_at = $2, last_sync_error = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, syncTime, syncErr)
	if err != nil {
		return fmt.Errorf("updating last sync: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
