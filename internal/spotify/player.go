package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-replay/internal/models"
)

// maxRecentlyPlayed is the largest page the recently played endpoint returns.
const maxRecentlyPlayed = 50

// CurrentlyPlaying returns the track the user is playing now.
// Returns nil when nothing is playing or the item is not a track.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	playing, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting currently playing: %w", err)
	}
	if playing == nil || playing.Item == nil || playing.Item.ID == "" {
		return nil, nil
	}

	track := convertTrack(playing.Item.SimpleTrack)
	return &track, nil
}

// RecentlyPlayed returns up to limit recently played tracks, most recent first.
// limit is clamped to 1..50.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error) {
	limit = max(1, min(limit, maxRecentlyPlayed))

	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)})
	if err != nil {
		return nil, fmt.Errorf("getting recently played: %w", err)
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, convertTrack(item.Track))
	}
	return tracks, nil
}

// convertTrack converts a Spotify SimpleTrack to models.Track.
func convertTrack(t spotify.SimpleTrack) models.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		ID:     models.TrackID(t.ID.String()),
		Name:   t.Name,
		Artist: strings.Join(artists, ", "),
	}
}
