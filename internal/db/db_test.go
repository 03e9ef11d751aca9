package db

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

// testDB connects to the database named by SPOTIFY_REPLAY_TEST_DATABASE_URL,
// applies migrations and empties every table. Tests are skipped without it.
func testDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("SPOTIFY_REPLAY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SPOTIFY_REPLAY_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, database.Migrate(ctx, logger))

	_, err = database.Pool().Exec(ctx, `TRUNCATE sessions, playlists, users`)
	require.NoError(t, err)

	return database
}

func TestStoreRoundTrip(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	store := NewStore(database)

	expiry := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	user := &User{ID: "user1", DisplayName: "User One"}
	user.SetCredential(models.Credential{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: expiry})
	require.NoError(t, database.Users().Upsert(ctx, user))

	require.NoError(t, database.Playlists().Create(ctx, &Playlist{
		UserID: "user1", Name: "User One's Replay", SpotifyPlaylistID: "sp1",
	}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a1", users[0].Credential.AccessToken)
	assert.True(t, expiry.Equal(users[0].Credential.ExpiresAt))

	refs, err := store.ListPlaylists(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "sp1", refs[0].RemotePlaylistID)

	require.NoError(t, store.SaveCredential(ctx, "user1", models.Credential{AccessToken: "a2", RefreshToken: "r1"}))
	got, err := store.GetUser(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.Credential.AccessToken)
	assert.True(t, got.Credential.ExpiresAt.IsZero())

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, sync.ErrUserNotFound)
}

func TestRecordSync(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	store := NewStore(database)

	require.NoError(t, database.Users().Upsert(ctx, &User{ID: "user1", AccessToken: "a"}))

	at := time.Now().Truncate(time.Microsecond)
	require.NoError(t, store.RecordSync(ctx, "user1", at, errors.New("boom")))

	row, err := database.Users().Get(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, row.LastSyncError)
	assert.Equal(t, "boom", *row.LastSyncError)
	assert.True(t, at.Equal(*row.LastSyncAt))

	require.NoError(t, store.RecordSync(ctx, "user1", at, nil))
	row, err = database.Users().Get(ctx, "user1")
	require.NoError(t, err)
	assert.Nil(t, row.LastSyncError)

	assert.ErrorIs(t, store.RecordSync(ctx, "missing", at, nil), ErrNotFound)
}

func TestPlaylistRepository(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	repo := database.Playlists()

	require.NoError(t, database.Users().Upsert(ctx, &User{ID: "user1", AccessToken: "a"}))

	_, err := repo.GetForUser(ctx, "user1")
	assert.ErrorIs(t, err, ErrNotFound)

	p := &Playlist{UserID: "user1", Name: "Old", SpotifyPlaylistID: "sp1"}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.UpdateName(ctx, p.ID, "New"))

	got, err := repo.GetForUser(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, p.ID, got.ID)
}

func TestSessionRepository(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	repo := database.Sessions()

	require.NoError(t, database.Users().Upsert(ctx, &User{ID: "user1", AccessToken: "a"}))

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &Session{ID: "live", UserID: "user1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &Session{ID: "stale", UserID: "user1", CreatedAt: now, ExpiresAt: now.Add(-time.Hour)}))

	s, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "user1", s.UserID)

	_, err = repo.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.Get(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrationStatus(t *testing.T) {
	database := testDB(t)

	statuses, err := database.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %s not applied", s.Path)
	}
}
