package main

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-spotify-replay/internal/web"
	webfs "github.com/justestif/go-spotify-replay/web"
)

const sessionPurgeInterval = time.Hour

func newServeCmd() *cobra.Command {
	var (
		noSync    bool
		noMigrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app and the periodic sync",
		Long: `Serve the sign-up pages and sync every registered user's playlists
every sync.interval until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, flagVerbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := shutdownContext(cmd.Context(), a.logger)

			if !noMigrate {
				if err := a.db.Migrate(ctx, a.logger); err != nil {
					return err
				}
			}

			// Create sub-filesystems for templates and static files
			templates, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}
			static, err := fs.Sub(webfs.StaticFS, "static")
			if err != nil {
				return fmt.Errorf("creating static filesystem: %w", err)
			}

			sessions := web.NewDBSessionStore(a.db)
			server, err := web.NewServer(web.ServerConfig{
				Addr:        cfg.Server.Addr,
				TemplatesFS: templates,
				StaticFS:    static,
				Auth:        a.auth,
				Clients:     web.FactorySource(a.factory),
				Repo:        web.NewRepository(a.db),
				Syncer:      a.orchestrator,
				Sessions:    sessions,
				Logger:      a.logger,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Run(gctx)
			})
			g.Go(func() error {
				sessions.PurgeExpired(gctx, sessionPurgeInterval, a.logger)
				return nil
			})
			if !noSync {
				g.Go(func() error {
					return a.orchestrator.Run(gctx, cfg.Sync.Interval)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noSync, "no-sync", false, "serve the web app without the periodic sync")
	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "skip applying database migrations on startup")

	return cmd
}
