package worker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type NotificationPruner interface {
	PruneReadNotifications(ctx context.Context, before time.Time) (int64, error)
}

// RetentionWorker periodically deletes read notifications older than maxAge.
type RetentionWorker struct {
	pruner   NotificationPruner
	log      zerolog.Logger
	clock    clockwork.Clock
	interval time.Duration
	maxAge   time.Duration
}

func NewRetentionWorker(p NotificationPruner, log zerolog.Logger, clock clockwork.Clock, interval, maxAge time.Duration) *RetentionWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RetentionWorker{pruner: p, log: log, clock: clock, interval: interval, maxAge: maxAge}
}

// Run prunes once immediately and then every interval until ctx is done. A
// non-positive interval prunes once and returns.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Warn().Dur("interval", w.interval).Msg("retention: non-positive interval, running once")
		w.RunOnce(ctx)
		return
	}
	t := w.clock.NewTicker(w.interval)
	defer t.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			w.RunOnce(ctx)
		}
	}
}

func (w *RetentionWorker) RunOnce(ctx context.Context) int64 {
	cutoff := w.clock.Now().Add(-w.maxAge)
	n, err := w.pruner.PruneReadNotifications(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("retention: prune notifications")
		}
		return 0
	}
	if n > 0 {
		w.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("retention: pruned read notifications")
	}
	return n
}
