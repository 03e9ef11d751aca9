package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	gosync "sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-replay/internal/auth"
	"github.com/justestif/go-spotify-replay/internal/db"
	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/spotify"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

type fakeAuth struct {
	token        *oauth2.Token
	exchangeErr  error
	refreshed    models.Credential
	refreshErr   error
	refreshCalls []string
}

func (a *fakeAuth) AuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (a *fakeAuth) Exchange(_ context.Context, expectedState string, r *http.Request) (*oauth2.Token, error) {
	if r.URL.Query().Get("state") != expectedState {
		return nil, auth.ErrStateMismatch
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		return nil, errors.New("spotify auth error: " + msg)
	}
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	return a.token, nil
}

func (a *fakeAuth) Refresh(_ context.Context, refreshToken string) (models.Credential, error) {
	a.refreshCalls = append(a.refreshCalls, refreshToken)
	if a.refreshErr != nil {
		return models.Credential{}, a.refreshErr
	}
	return a.refreshed, nil
}

type renameCall struct {
	playlistID string
	name       string
}

type createCall struct {
	userID, name, description string
	public                    bool
}

type fakeAPI struct {
	profile   *spotify.Profile
	userErr   error
	createdID string
	createErr error
	renameErr error

	tokens  []string // Access tokens clients were built with
	created []createCall
	renamed []renameCall
}

func (f *fakeAPI) source(token *oauth2.Token) SpotifyAPI {
	f.tokens = append(f.tokens, token.AccessToken)
	return f
}

func (f *fakeAPI) CurrentUser(context.Context) (*spotify.Profile, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.profile, nil
}

func (f *fakeAPI) CreatePlaylist(_ context.Context, userID, name, description string, public bool) (string, error) {
	f.created = append(f.created, createCall{userID, name, description, public})
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createdID, nil
}

func (f *fakeAPI) RenamePlaylist(_ context.Context, playlistID, name string) error {
	f.renamed = append(f.renamed, renameCall{playlistID, name})
	return f.renameErr
}

type fakeRepo struct {
	mu        gosync.Mutex
	users     map[string]*db.User
	playlists []db.Playlist
	listErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*db.User)}
}

func (r *fakeRepo) GetUser(_ context.Context, id string) (*db.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) UpsertUser(_ context.Context, user *db.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateToken(_ context.Context, id string, cred models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.SetCredential(cred)
	return nil
}

func (r *fakeRepo) GetPlaylist(_ context.Context, userID string) (*db.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.playlists {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeRepo) ListPlaylists(_ context.Context, userID string) ([]db.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []db.Playlist
	for _, p := range r.playlists {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreatePlaylist(_ context.Context, playlist *db.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if playlist.ID == uuid.Nil {
		playlist.ID = uuid.New()
	}
	r.playlists = append(r.playlists, *playlist)
	return nil
}

func (r *fakeRepo) RenamePlaylist(_ context.Context, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.playlists {
		if r.playlists[i].ID == id {
			r.playlists[i].Name = name
			return nil
		}
	}
	return db.ErrNotFound
}

type fakeSyncer struct {
	report *sync.UserReport
	err    error
	users  []string
}

func (s *fakeSyncer) SyncUser(_ context.Context, userID string) (*sync.UserReport, error) {
	s.users = append(s.users, userID)
	return s.report, s.err
}

// testEnv is a server wired to fakes.
type testEnv struct {
	server   *Server
	auth     *fakeAuth
	api      *fakeAPI
	repo     *fakeRepo
	syncer   *fakeSyncer
	sessions *SessionStore
	logs     *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		auth:     &fakeAuth{},
		api:      &fakeAPI{profile: &spotify.Profile{ID: "user1", DisplayName: "User One"}, createdID: "new-pl"},
		repo:     newFakeRepo(),
		syncer:   &fakeSyncer{},
		sessions: NewSessionStore(),
		logs:     hook,
	}

	server, err := NewServer(ServerConfig{
		TemplatesFS: os.DirFS("../../web/templates"),
		StaticFS:    os.DirFS("../../web/static"),
		Auth:        env.auth,
		Clients:     env.api.source,
		Repo:        env.repo,
		Syncer:      env.syncer,
		Sessions:    env.sessions,
		Logger:      logger,
	})
	require.NoError(t, err)
	env.server = server

	return env
}

// login registers user1 and returns a session cookie for them.
func (e *testEnv) login(t *testing.T, cred models.Credential) *http.Cookie {
	t.Helper()

	user := &db.User{ID: "user1", DisplayName: "User One"}
	user.SetCredential(cred)
	require.NoError(t, e.repo.UpsertUser(context.Background(), user))

	session, err := e.sessions.Create(context.Background(), "user1", "User One")
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: session.ID}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}
