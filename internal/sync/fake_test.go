package sync

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strconv"
	gosync "sync"
	"time"

	"github.com/justestif/go-spotify-replay/internal/models"
)

var errRemote = errors.New("remote unavailable")

// fakeClient is an in-memory MusicClient backed by a map of playlists.
type fakeClient struct {
	mu gosync.Mutex

	current   *models.Track
	recent    []models.Track
	playlists map[string][]models.TrackID
	pageSize  int

	currentErr error
	recentErr  error
	fetchErr   error
	addErr     error
	removeErr  error

	onCurrent func() // Runs before CurrentlyPlaying answers

	recentLimit int
	adds        int
	removes     int
	fetches     int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		playlists: make(map[string][]models.TrackID),
		pageSize:  100,
	}
}

func (c *fakeClient) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	if c.onCurrent != nil {
		c.onCurrent()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.currentErr != nil {
		return nil, c.currentErr
	}
	return c.current, nil
}

func (c *fakeClient) RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error) {
	c.mu.Lock()
	c.recentLimit = limit
	c.mu.Unlock()
	if c.recentErr != nil {
		return nil, c.recentErr
	}
	if len(c.recent) > limit {
		return c.recent[:limit], nil
	}
	return c.recent, nil
}

func (c *fakeClient) PlaylistTracks(ctx context.Context, playlistID string) iter.Seq2[[]models.TrackID, error] {
	return func(yield func([]models.TrackID, error) bool) {
		c.mu.Lock()
		c.fetches++
		tracks := slices.Clone(c.playlists[playlistID])
		c.mu.Unlock()

		if c.fetchErr != nil {
			yield(nil, c.fetchErr)
			return
		}
		for start := 0; start < len(tracks); start += c.pageSize {
			end := min(start+c.pageSize, len(tracks))
			if !yield(tracks[start:end], nil) {
				return
			}
		}
	}
}

func (c *fakeClient) AddTracks(ctx context.Context, playlistID string, ids []models.TrackID, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds++
	if c.addErr != nil {
		return c.addErr
	}
	existing := c.playlists[playlistID]
	c.playlists[playlistID] = slices.Concat(existing[:position], ids, existing[position:])
	return nil
}

func (c *fakeClient) RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removes++
	if c.removeErr != nil {
		return c.removeErr
	}
	drop := NewTrackSet(ids)
	c.playlists[playlistID] = slices.DeleteFunc(c.playlists[playlistID], drop.Contains)
	return nil
}

func (c *fakeClient) tracks(playlistID string) []models.TrackID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.playlists[playlistID])
}

// fakeFactory hands out a pre-built client per access token.
type fakeFactory struct {
	mu      gosync.Mutex
	clients map[string]*fakeClient
	tokens  []string
	err     error
}

func (f *fakeFactory) NewClient(ctx context.Context, cred models.Credential) (MusicClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, cred.AccessToken)
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.clients[cred.AccessToken]
	if !ok {
		return nil, errors.New("unknown access token " + cred.AccessToken)
	}
	return c, nil
}

// fakeRefresher maps refresh tokens to new credentials.
type fakeRefresher struct {
	mu     gosync.Mutex
	creds  map[string]models.Credential
	errs   map[string]error
	called []string
}

func (r *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called = append(r.called, refreshToken)
	if err := r.errs[refreshToken]; err != nil {
		return models.Credential{}, err
	}
	return r.creds[refreshToken], nil
}

type syncRecord struct {
	at  time.Time
	err error
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        gosync.Mutex
	users     []models.User
	playlists map[string][]models.PlaylistRef
	saved     map[string]models.Credential
	synced    map[string]syncRecord
	listErr   error
}

func newFakeStore(users ...models.User) *fakeStore {
	return &fakeStore{
		users:     users,
		playlists: make(map[string][]models.PlaylistRef),
		saved:     make(map[string]models.Credential),
		synced:    make(map[string]syncRecord),
	}
}

func (s *fakeStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.users), nil
}

func (s *fakeStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) ListPlaylists(ctx context.Context, userID string) ([]models.PlaylistRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.playlists[userID]), nil
}

func (s *fakeStore) SaveCredential(ctx context.Context, userID string, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[userID] = cred
	return nil
}

func (s *fakeStore) RecordSync(ctx context.Context, userID string, at time.Time, syncErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[userID] = syncRecord{at: at, err: syncErr}
	return nil
}

func trackIDs(prefix string, n int) []models.TrackID {
	ids := make([]models.TrackID, n)
	for i := range ids {
		ids[i] = models.TrackID(prefix + strconv.Itoa(i+1))
	}
	return ids
}

func tracks(ids ...models.TrackID) []models.Track {
	out := make([]models.Track, len(ids))
	for i, id := range ids {
		out[i] = models.Track{ID: id}
	}
	return out
}
