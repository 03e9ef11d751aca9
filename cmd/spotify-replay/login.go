package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-replay/internal/auth"
	"github.com/justestif/go-spotify-replay/internal/db"
	"github.com/justestif/go-spotify-replay/internal/spotify"
	"github.com/justestif/go-spotify-replay/internal/web"
)

func newLoginCmd() *cobra.Command {
	var playlistName string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Register a Spotify account from the terminal",
		Long: `Authorize a Spotify account without the web app and store its tokens.

The callback is served on spotify.redirect_url, so the web server must not be
running on the same address. Unless the account already has a playlist, one is
created with --playlist as its name.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, flagVerbose)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.auth.Login(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			client := a.factory.ForToken(token)
			profile, err := client.CurrentUser(ctx)
			if err != nil {
				return err
			}

			user := &db.User{ID: profile.ID, DisplayName: profile.DisplayName}
			user.SetCredential(auth.CredentialFromToken(token))
			if err := a.db.Users().Upsert(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", profile.DisplayName, profile.ID)

			existing, err := a.db.Playlists().GetForUser(ctx, user.ID)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Syncing into %q: %s\n", existing.Name, spotify.PlaylistURL(existing.SpotifyPlaylistID))
				return nil
			}
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}

			name := playlistName
			if name == "" {
				name = web.DefaultPlaylistName(profile.DisplayName)
			}
			remoteID, err := client.CreatePlaylist(ctx, user.ID, name, spotify.PlaylistDescription, false)
			if err != nil {
				return err
			}
			if err := a.db.Playlists().Create(ctx, &db.Playlist{UserID: user.ID, Name: name, SpotifyPlaylistID: remoteID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q: %s\n", name, spotify.PlaylistURL(remoteID))
			return nil
		},
	}

	cmd.Flags().StringVar(&playlistName, "playlist", "", "name for a new playlist (default \"<display name>'s Replay\")")

	return cmd
}
