// Package auth provides Spotify OAuth2 authentication and token refresh.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-replay/internal/models"
)

var (
	// ErrMissingCredentials is returned when the client ID or secret is not configured.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Scopes are the permissions the app requests.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenURL     string // Defaults to the Spotify accounts token endpoint
}

// Authenticator handles Spotify OAuth2 authentication.
type Authenticator struct {
	auth  *spotifyauth.Authenticator
	oauth *oauth2.Config
}

// New creates an Authenticator.
// Returns ErrMissingCredentials if the client ID or secret is empty.
func New(cfg Config) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithScopes(Scopes...),
	)

	return &Authenticator{
		auth: auth,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// AuthURL returns the Spotify consent page URL for state.
func (a *Authenticator) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange validates the callback request against expectedState and trades
// its authorization code for a token.
func (a *Authenticator) Exchange(ctx context.Context, expectedState string, r *http.Request) (*oauth2.Token, error) {
	if r.URL.Query().Get("state") != expectedState {
		return nil, ErrStateMismatch
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		return nil, fmt.Errorf("spotify auth error: %s", errMsg)
	}

	token, err := a.auth.Token(ctx, expectedState, r)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new access token.
// The returned credential keeps refreshToken when Spotify does not rotate it.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	if refreshToken == "" {
		return models.Credential{}, errors.New("empty refresh token")
	}

	src := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return models.Credential{}, fmt.Errorf("refreshing token: %w", err)
	}

	cred := CredentialFromToken(token)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

// CredentialFromToken converts an OAuth token to the stored credential form.
func CredentialFromToken(token *oauth2.Token) models.Credential {
	return models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}

// TokenFromCredential converts a stored credential back to an OAuth token.
func TokenFromCredential(cred models.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.ExpiresAt,
	}
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
