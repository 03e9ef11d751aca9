package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-spotify-replay/internal/models"
)

// FailureHook is called once for every user whose sync fails.
type FailureHook func(ctx context.Context, userID string, err error)

// Orchestrator runs sync cycles over every registered user.
type Orchestrator struct {
	store       Store
	clients     ClientFactory
	refresher   TokenRefresher
	reconciler  *Reconciler
	recentLimit int
	concurrency int
	onFailure   FailureHook
	now         func() time.Time
	locks       *keyedMutex
	logger      logrus.FieldLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReconciler replaces the default Reconciler.
func WithReconciler(r *Reconciler) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reconciler = r
		}
	}
}

// WithRecentLimit sets how many recently played tracks are fetched per user.
// Values outside 1..DefaultRecentLimit are ignored.
func WithRecentLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 && n <= DefaultRecentLimit {
			o.recentLimit = n
		}
	}
}

// WithConcurrency sets how many users are synced at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}

// WithFailureHook registers a callback for failed users.
func WithFailureHook(h FailureHook) Option {
	return func(o *Orchestrator) {
		o.onFailure = h
	}
}

// WithClock overrides the time source used for expiry checks and reports.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store Store, clients ClientFactory, refresher TokenRefresher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		clients:     clients,
		refresher:   refresher,
		recentLimit: DefaultRecentLimit,
		concurrency: 1,
		now:         time.Now,
		locks:       newKeyedMutex(),
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reconciler == nil {
		o.reconciler = NewReconciler(WithReconcilerLogger(o.logger))
	}
	return o
}

// RunSyncCycle syncs every registered user.
//
// A failing user is logged, passed to the failure hook and recorded in the
// store, then the cycle moves on. The returned error is non-nil only when the
// user list itself could not be loaded.
func (o *Orchestrator) RunSyncCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		RunID:     uuid.New(),
		StartedAt: o.now(),
	}
	log := o.logger.WithField("run_id", report.RunID.String())

	users, err := o.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	log.WithField("users", len(users)).Info("starting sync cycle")

	results := make([]UserReport, len(users))
	started := make([]bool, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, user := range users {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may block for a free slot past cancellation.
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true
			results[i] = o.syncUser(gctx, log, user)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if started[i] {
			report.Users = append(report.Users, r)
		}
	}
	report.Pending = len(users) - len(report.Users)
	if report.Pending > 0 {
		log.WithField("pending", report.Pending).Warn("sync cycle cancelled before all users were processed")
	}

	report.FinishedAt = o.now()
	log.WithFields(logrus.Fields{
		"users":    len(report.Users),
		"failed":   report.Failed(),
		"duration": report.Duration().String(),
	}).Info("sync cycle completed")

	return report, nil
}

// SyncUser runs the sync pipeline for a single user. The returned report's
// Err carries any failure; the error return is for lookup failures only.
func (o *Orchestrator) SyncUser(ctx context.Context, userID string) (*UserReport, error) {
	user, err := o.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %s: %w", userID, err)
	}

	report := o.syncUser(ctx, o.logger, *user)
	return &report, nil
}

func (o *Orchestrator) syncUser(ctx context.Context, logger logrus.FieldLogger, user models.User) UserReport {
	log := logger.WithField("user_id", user.ID)
	log.Debug("processing user")

	report := o.updateUserPlaylists(ctx, log, user)

	// Cancellation is not the user's failure: nothing is reported or recorded.
	if report.Err != nil && ctx.Err() != nil {
		report.Interrupted = true
		log.WithError(report.Err).Info("sync interrupted")
		return report
	}

	if report.Err != nil {
		log.WithError(report.Err).Error("error updating playlists for user")
		if o.onFailure != nil {
			o.onFailure(ctx, user.ID, report.Err)
		}
	}

	if report.Skipped {
		return report
	}
	if err := o.store.RecordSync(ctx, user.ID, o.now(), report.Err); err != nil {
		log.WithError(err).Warn("failed to record sync outcome")
	}
	return report
}

func (o *Orchestrator) updateUserPlaylists(ctx context.Context, log logrus.FieldLogger, user models.User) UserReport {
	report := UserReport{UserID: user.ID}

	playlists, err := o.store.ListPlaylists(ctx, user.ID)
	if err != nil {
		report.Err = fmt.Errorf("listing playlists: %w", err)
		return report
	}
	if len(playlists) == 0 {
		log.Debug("user has no playlists, skipping")
		report.Skipped = true
		return report
	}
	log.WithField("playlists", len(playlists)).Debug("found playlists")

	cred := user.Credential
	if cred.Expired(o.now()) {
		cred, err = o.refresh(ctx, log, user)
		if err != nil {
			report.Err = err
			return report
		}
		report.Refreshed = true
	}

	client, err := o.clients.NewClient(ctx, cred)
	if err != nil {
		report.Err = fmt.Errorf("creating client: %w", err)
		return report
	}

	state, err := o.fetchListeningState(ctx, log, client)
	if err != nil {
		report.Err = err
		return report
	}

	for _, p := range playlists {
		result, err := o.reconcileLocked(ctx, client, p, state)
		if result != nil {
			report.Playlists = append(report.Playlists, *result)
		}
		if err != nil {
			report.Err = fmt.Errorf("updating playlist %q: %w", p.Name, err)
			return report
		}
	}

	return report
}

func (o *Orchestrator) refresh(ctx context.Context, log logrus.FieldLogger, user models.User) (models.Credential, error) {
	if user.Credential.RefreshToken == "" {
		return models.Credential{}, ErrNoRefreshToken
	}

	log.Debug("token expired, refreshing")
	cred, err := o.refresher.Refresh(ctx, user.Credential.RefreshToken)
	if err != nil {
		return models.Credential{}, fmt.Errorf("refreshing token: %w", err)
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = user.Credential.RefreshToken
	}

	if err := o.store.SaveCredential(ctx, user.ID, cred); err != nil {
		return models.Credential{}, fmt.Errorf("saving refreshed token: %w", err)
	}
	log.Debug("token refreshed")
	return cred, nil
}

func (o *Orchestrator) fetchListeningState(ctx context.Context, log logrus.FieldLogger, client MusicClient) (models.ListeningState, error) {
	var state models.ListeningState

	current, err := client.CurrentlyPlaying(ctx)
	if err != nil {
		return state, fmt.Errorf("fetching currently playing: %w", err)
	}
	if current != nil {
		state.Current = current.ID
		log.WithFields(logrus.Fields{
			"track_id": current.ID,
			"track":    current.Name,
		}).Debug("currently playing")
	}

	recent, err := client.RecentlyPlayed(ctx, o.recentLimit)
	if err != nil {
		return state, fmt.Errorf("fetching recently played: %w", err)
	}
	state.Recent = models.TrackIDs(recent)
	log.WithField("tracks", len(recent)).Debug("fetched recently played")

	return state, nil
}

func (o *Orchestrator) reconcileLocked(ctx context.Context, client MusicClient, p models.PlaylistRef, state models.ListeningState) (*ReconcileResult, error) {
	unlock := o.locks.Lock(p.RemotePlaylistID)
	defer unlock()
	return o.reconciler.Reconcile(ctx, client, p, state)
}
