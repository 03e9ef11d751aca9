package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-replay/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		Long: `Reconcile every registered user's playlists once, or only --user's.

Exits non-zero when any user fails, so it can run from cron.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, flagVerbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := shutdownContext(cmd.Context(), a.logger)
			out := cmd.OutOrStdout()

			if userID != "" {
				report, err := a.orchestrator.SyncUser(ctx, userID)
				if errors.Is(err, sync.ErrUserNotFound) {
					return fmt.Errorf("user %q is not registered", userID)
				}
				if err != nil {
					return err
				}
				printUserReport(out, *report)
				return report.Err
			}

			report, err := a.orchestrator.RunSyncCycle(ctx)
			if err != nil {
				return err
			}
			for _, u := range report.Users {
				printUserReport(out, u)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if n := report.Failed(); n > 0 {
				return fmt.Errorf("%d of %d users failed to sync", n, len(report.Users))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "sync only this Spotify user ID")

	return cmd
}

func printUserReport(w io.Writer, r sync.UserReport) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "%s: failed: %v\n", r.UserID, r.Err)
	case r.Skipped:
		fmt.Fprintf(w, "%s: no playlists\n", r.UserID)
	default:
		removed := 0
		for _, p := range r.Playlists {
			removed += len(p.Removed)
		}
		fmt.Fprintf(w, "%s: %d playlists, %d added, %d removed\n",
			r.UserID, len(r.Playlists), r.TracksAdded(), removed)
	}
}
