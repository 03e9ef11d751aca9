package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-replay/internal/models"
)

const maxTracksPerRequest = 100

// PlaylistDescription is set on every playlist the app creates.
const PlaylistDescription = "Auto-updated playlist with recently played tracks"

// CreatePlaylist creates a new playlist for the current user.
// Returns the playlist ID.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (string, error) {
	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}

	return playlist.ID.String(), nil
}

// RenamePlaylist changes a playlist's name and resets its description.
// The playlist's visibility is left as it is.
func (c *Client) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	id := spotify.ID(playlistID)
	if err := c.api.ChangePlaylistName(ctx, id, name); err != nil {
		return fmt.Errorf("renaming playlist: %w", err)
	}
	if err := c.api.ChangePlaylistDescription(ctx, id, PlaylistDescription); err != nil {
		return fmt.Errorf("updating playlist description: %w", err)
	}
	return nil
}

// PlaylistTracks yields the track IDs of a playlist one page at a time.
// Local files and podcast episodes have no track ID and are skipped.
// Every range over the returned sequence fetches from the first page again.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) iter.Seq2[[]models.TrackID, error] {
	return func(yield func([]models.TrackID, error) bool) {
		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(maxTracksPerRequest))
		if err != nil {
			yield(nil, fmt.Errorf("fetching playlist items: %w", err))
			return
		}

		for {
			ids := make([]models.TrackID, 0, len(page.Items))
			for _, item := range page.Items {
				if item.Track.Track == nil || item.Track.Track.ID == "" {
					continue
				}
				ids = append(ids, models.TrackID(item.Track.Track.ID.String()))
			}
			if !yield(ids, nil) {
				return
			}

			err = c.api.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("fetching next page: %w", err))
				return
			}
		}
	}
}

// RemoveTracks removes every occurrence of the given tracks from a playlist,
// batching for large sets.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, trackIDs []models.TrackID) error {
	ids := toSpotifyIDs(trackIDs)

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		_, err := c.api.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), batch...)
		if err != nil {
			return fmt.Errorf("removing tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

// addTracksRequest is the body of POST /playlists/{id}/tracks.
type addTracksRequest struct {
	URIs     []string `json:"uris"`
	Position int      `json:"position"`
}

// AddTracks inserts tracks into a playlist starting at position, handling
// batching for large sets. Batches are inserted back to back so the tracks
// keep their relative order.
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []models.TrackID, position int) error {
	for i := 0; i < len(trackIDs); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(trackIDs))

		req := addTracksRequest{
			URIs:     make([]string, 0, end-i),
			Position: position + i,
		}
		for _, id := range trackIDs[i:end] {
			req.URIs = append(req.URIs, "spotify:track:"+id.String())
		}

		if err := c.postAddTracks(ctx, playlistID, req); err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

func (c *Client) postAddTracks(ctx context.Context, playlistID string, body addTracksRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL + "playlists/" + url.PathEscape(playlistID) + "/tracks"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		return nil
	}
	return decodeError(resp)
}

// decodeError turns a non-2xx response into a *spotify.Error.
func decodeError(resp *http.Response) error {
	var e struct {
		Error spotify.Error `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error.Message == "" {
		return &spotify.Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if e.Error.Status == 0 {
		e.Error.Status = resp.StatusCode
	}
	return &e.Error
}

func toSpotifyIDs(trackIDs []models.TrackID) []spotify.ID {
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}
	return ids
}
