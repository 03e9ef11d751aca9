package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/justestif/go-spotify-replay/internal/auth"
	"github.com/justestif/go-spotify-replay/internal/config"
	"github.com/justestif/go-spotify-replay/internal/db"
	"github.com/justestif/go-spotify-replay/internal/spotify"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

const sentryFlushTimeout = 2 * time.Second

// app holds the components shared by every command.
type app struct {
	cfg          *config.Config
	logger       *logrus.Logger
	db           *db.DB
	auth         *auth.Authenticator
	factory      *spotify.Factory
	orchestrator *sync.Orchestrator
	sentry       bool
}

// newApp connects to the database and wires the sync pipeline.
func newApp(ctx context.Context, cfg *config.Config, verbose bool) (*app, error) {
	logger, err := buildLogger(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     version,
		}); err != nil {
			return nil, fmt.Errorf("initializing sentry: %w", err)
		}
		a.sentry = true
	}

	a.auth, err = auth.New(auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
	})
	if err != nil {
		return nil, err
	}

	a.db, err = db.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	transport := spotify.NewRateLimitedTransport(nil, cfg.Spotify.RequestsPerSecond)
	a.factory = spotify.NewFactory(transport, cfg.Spotify.RequestTimeout)

	a.orchestrator = sync.NewOrchestrator(db.NewStore(a.db), a.factory, a.auth,
		sync.WithReconciler(sync.NewReconciler(
			sync.WithCapacity(cfg.Sync.Capacity),
			sync.WithReconcilerLogger(logger),
		)),
		sync.WithRecentLimit(cfg.Sync.RecentLimit),
		sync.WithConcurrency(cfg.Sync.Concurrency),
		sync.WithFailureHook(a.reportFailure),
		sync.WithLogger(logger),
	)

	return a, nil
}

// reportFailure sends a failed user sync to Sentry when it is configured.
func (a *app) reportFailure(_ context.Context, userID string, err error) {
	if !a.sentry {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("user_id", userID)
		sentry.CaptureException(err)
	})
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.sentry {
		sentry.Flush(sentryFlushTimeout)
	}
}
