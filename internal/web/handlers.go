package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justestif/go-spotify-replay/internal/auth"
	"github.com/justestif/go-spotify-replay/internal/db"
	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/spotify"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

const stateCookieName = "oauth_state"

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      Authenticator
	clients   ClientSource
	repo      Repository
	syncer    Syncer
	sessions  SessionManager
	templates *Templates
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authenticator Authenticator,
	clients ClientSource,
	repo Repository,
	syncer Syncer,
	sessions SessionManager,
	templates *Templates,
	logger logrus.FieldLogger,
) *Handlers {
	return &Handlers{
		auth:      authenticator,
		clients:   clients,
		repo:      repo,
		syncer:    syncer,
		sessions:  sessions,
		templates: templates,
		logger:    logger,
		now:       time.Now,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Spotify Replay",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
	}

	if session != nil {
		data.User = &UserData{
			ID:   session.UserID,
			Name: session.UserName,
		}

		if user, err := h.repo.GetUser(r.Context(), session.UserID); err == nil {
			if user.LastSyncAt != nil {
				data.LastSyncAt = *user.LastSyncAt
			}
			if user.LastSyncError != nil {
				data.LastSyncError = *user.LastSyncError
			}
		}

		playlist, err := h.repo.GetPlaylist(r.Context(), session.UserID)
		if err == nil {
			data.Playlist = newPlaylistData(playlist)
		} else if !errors.Is(err, db.ErrNotFound) {
			h.logger.WithError(err).WithField("user_id", session.UserID).Warn("Loading playlist for home page")
		}
	}

	h.render(w, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		h.serverError(w, "Failed to generate state", err)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
// It stores the user's tokens so the background sync can act for them.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	token, err := h.auth.Exchange(r.Context(), stateCookie.Value, r)
	switch {
	case errors.Is(err, auth.ErrStateMismatch):
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	case err != nil && r.URL.Query().Get("error") != "":
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", r.URL.Query().Get("error")), http.StatusBadRequest)
		return
	case err != nil:
		h.serverError(w, "Failed to get token", err)
		return
	}

	profile, err := h.clients(token).CurrentUser(r.Context())
	if err != nil {
		h.serverError(w, "Failed to get user info", err)
		return
	}

	user := &db.User{ID: profile.ID, DisplayName: profile.DisplayName}
	user.SetCredential(auth.CredentialFromToken(token))
	if err := h.repo.UpsertUser(r.Context(), user); err != nil {
		h.serverError(w, "Failed to save user", err)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID, user.DisplayName)
	if err != nil {
		h.serverError(w, "Failed to create session", err)
		return
	}
	h.sessions.SetCookie(w, session)

	h.logger.WithField("user_id", user.ID).Info("User logged in")
	http.Redirect(w, r, "/create_playlist", http.StatusTemporaryRedirect)
}

// CreatePlaylistPage shows the playlist name form (GET /create_playlist).
// Users who already have a playlist get its current name and rename it.
func (h *Handlers) CreatePlaylistPage(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	data := CreatePlaylistPageData{
		PageData: PageData{
			Title:       "Name your playlist",
			CurrentPath: r.URL.Path,
			User:        &UserData{ID: session.UserID, Name: session.UserName},
		},
		PlaylistName: DefaultPlaylistName(session.UserName),
	}

	playlist, err := h.repo.GetPlaylist(r.Context(), session.UserID)
	switch {
	case err == nil:
		data.PlaylistName = playlist.Name
		data.IsUpdate = true
	case !errors.Is(err, db.ErrNotFound):
		h.serverError(w, "Failed to load playlist", err)
		return
	}

	h.render(w, "create_playlist", data)
}

// SavePlaylist creates the user's playlist or renames it (POST /playlist).
func (h *Handlers) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("playlist_name"))
	if name == "" {
		http.Error(w, "Playlist name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.repo.GetUser(ctx, session.UserID)
	if err != nil {
		h.serverError(w, "Failed to load user", err)
		return
	}

	cred, err := h.freshCredential(ctx, user)
	if err != nil {
		h.serverError(w, "Failed to refresh Spotify token", err)
		return
	}
	client := h.clients(auth.TokenFromCredential(cred))

	log := h.logger.WithField("user_id", user.ID)
	var remoteID, action string

	existing, err := h.repo.GetPlaylist(ctx, user.ID)
	switch {
	case err == nil:
		if err := client.RenamePlaylist(ctx, existing.SpotifyPlaylistID, name); err != nil {
			h.serverError(w, "Failed to rename playlist", err)
			return
		}
		if err := h.repo.RenamePlaylist(ctx, existing.ID, name); err != nil {
			h.serverError(w, "Failed to save playlist", err)
			return
		}
		remoteID, action = existing.SpotifyPlaylistID, "updated"

	case errors.Is(err, db.ErrNotFound):
		remoteID, err = client.CreatePlaylist(ctx, user.ID, name, spotify.PlaylistDescription, false)
		if err != nil {
			h.serverError(w, "Failed to create playlist", err)
			return
		}
		playlist := &db.Playlist{UserID: user.ID, Name: name, SpotifyPlaylistID: remoteID}
		if err := h.repo.CreatePlaylist(ctx, playlist); err != nil {
			h.serverError(w, "Failed to save playlist", err)
			return
		}
		action = "created"

	default:
		h.serverError(w, "Failed to load playlist", err)
		return
	}

	log.WithFields(logrus.Fields{"playlist_id": remoteID, "action": action}).Info("Playlist saved")

	q := url.Values{"playlist_id": {remoteID}, "action": {action}}
	http.Redirect(w, r, "/playlist-success?"+q.Encode(), http.StatusSeeOther)
}

// PlaylistSuccess confirms a saved playlist (GET /playlist-success).
func (h *Handlers) PlaylistSuccess(w http.ResponseWriter, r *http.Request) {
	playlistID := r.URL.Query().Get("playlist_id")
	if playlistID == "" {
		http.Error(w, "Missing playlist_id", http.StatusBadRequest)
		return
	}

	action := r.URL.Query().Get("action")
	if action != "updated" {
		action = "created"
	}

	data := PlaylistSuccessPageData{
		PageData: PageData{
			Title:       "Playlist " + action,
			CurrentPath: r.URL.Path,
		},
		PlaylistURL: spotify.PlaylistURL(playlistID),
		Action:      action,
	}
	if session := h.sessions.GetFromRequest(r); session != nil {
		data.User = &UserData{ID: session.UserID, Name: session.UserName}
	}

	h.render(w, "playlist_success", data)
}

// userResponse is the body of GET /user.
type userResponse struct {
	SpotifyID string             `json:"spotify_id"`
	Playlists []playlistResponse `json:"playlists"`
}

type playlistResponse struct {
	Name      string `json:"name"`
	SpotifyID string `json:"spotify_id"`
}

// UserInfo returns the session user and their playlists as JSON (GET /user).
func (h *Handlers) UserInfo(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	playlists, err := h.repo.ListPlaylists(r.Context(), session.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Listing playlists")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list playlists"})
		return
	}

	resp := userResponse{
		SpotifyID: session.UserID,
		Playlists: make([]playlistResponse, 0, len(playlists)),
	}
	for _, p := range playlists {
		resp.Playlists = append(resp.Playlists, playlistResponse{Name: p.Name, SpotifyID: p.SpotifyPlaylistID})
	}

	writeJSON(w, http.StatusOK, resp)
}

// syncResponse is the body of POST /sync.
type syncResponse struct {
	UserID    string                 `json:"user_id"`
	Refreshed bool                   `json:"refreshed"`
	Skipped   bool                   `json:"skipped"`
	Playlists []playlistSyncResponse `json:"playlists"`
	Error     string                 `json:"error,omitempty"`
}

type playlistSyncResponse struct {
	SpotifyID string           `json:"spotify_id"`
	Added     []models.TrackID `json:"added"`
	Removed   []models.TrackID `json:"removed"`
}

// Sync reconciles the session user's playlists now (POST /sync).
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	report, err := h.syncer.SyncUser(r.Context(), session.UserID)
	if errors.Is(err, sync.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Running sync")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "sync failed"})
		return
	}

	resp := syncResponse{
		UserID:    report.UserID,
		Refreshed: report.Refreshed,
		Skipped:   report.Skipped,
		Playlists: make([]playlistSyncResponse, 0, len(report.Playlists)),
	}
	for _, p := range report.Playlists {
		resp.Playlists = append(resp.Playlists, playlistSyncResponse{
			SpotifyID: p.RemotePlaylistID,
			Added:     nonNil(p.Added),
			Removed:   nonNil(p.Removed),
		})
	}

	status := http.StatusOK
	if report.Err != nil {
		resp.Error = report.Err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DefaultPlaylistName is offered to users creating their first playlist.
func DefaultPlaylistName(displayName string) string {
	return displayName + "'s Replay"
}

// freshCredential returns the user's credential, refreshing and storing it
// first when it has expired.
func (h *Handlers) freshCredential(ctx context.Context, user *db.User) (models.Credential, error) {
	cred := user.Credential()
	if !cred.Expired(h.now()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return cred, sync.ErrNoRefreshToken
	}

	refreshed, err := h.auth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return cred, err
	}
	if err := h.repo.UpdateToken(ctx, user.ID, refreshed); err != nil {
		return cred, fmt.Errorf("saving refreshed token: %w", err)
	}
	return refreshed, nil
}

func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.serverError(w, "Failed to render template", err)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.WithError(err).Error(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(ids []models.TrackID) []models.TrackID {
	if ids == nil {
		return []models.TrackID{}
	}
	return ids
}
