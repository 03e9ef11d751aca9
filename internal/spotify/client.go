// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1/"

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api     *spotify.Client
	http    *http.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		c.baseURL = url
	}
}

// New creates a new Spotify client wrapper.
// httpClient should already attach the user's access token to requests.
func New(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		http:    httpClient,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = spotify.New(httpClient, spotify.WithBaseURL(c.baseURL))
	return c
}

// Profile is the subset of the current user's profile the app stores.
type Profile struct {
	ID          string
	DisplayName string
}

// CurrentUser returns the authenticated user's profile.
// DisplayName falls back to the user ID when the account has none.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	p := &Profile{ID: user.ID, DisplayName: user.DisplayName}
	if p.DisplayName == "" {
		p.DisplayName = p.ID
	}
	return p, nil
}

// PlaylistURL returns the web player link for a playlist.
func PlaylistURL(playlistID string) string {
	return "https://open.spotify.com/playlist/" + playlistID
}
