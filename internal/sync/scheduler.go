package sync

import (
	"context"
	"time"
)

// Run executes a sync cycle immediately and then once per interval until ctx
// is done. A cycle that cannot list users is logged and retried on the next
// tick. Cycles never overlap: a slow cycle delays the next one.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.WithField("interval", interval.String()).Info("sync scheduler started")

	for {
		if _, err := o.RunSyncCycle(ctx); err != nil && ctx.Err() == nil {
			o.logger.WithError(err).Error("sync cycle failed")
		}

		select {
		case <-ctx.Done():
			o.logger.Info("sync scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
