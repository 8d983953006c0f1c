package mirror

import (
	"context"
	"log/slog"
	"time"
)

// Loop drives the Reconciler on a fixed interval until the context is
// cancelled. Cancellation is observed only during the inter-cycle
// wait; a cycle in progress always runs to completion.
type Loop struct {
	rec      *Reconciler
	interval time.Duration
	logger   *slog.Logger
}

// NewLoop creates a sync loop. The interval must already be validated
// as strictly positive.
func NewLoop(rec *Reconciler, interval time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		rec:      rec,
		interval: interval,
		logger:   logger,
	}
}

// Run reconciles immediately and then once per interval, indefinitely.
// It returns nil on cancellation; a cycle whose walk fails outright is
// logged and retried on the next tick.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("synchronization started", "interval", l.interval.String())

	for {
		l.runCycle()

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("synchronization interrupted, shutting down")
			return nil
		case <-timer.C:
		}
	}
}

func (l *Loop) runCycle() {
	l.logger.Info("starting synchronization cycle")

	res, err := l.rec.Run()
	if err != nil {
		l.logger.Error("synchronization cycle aborted", "error", err)
		return
	}

	if len(res.Failures) > 0 {
		l.logger.Warn("cycle finished with skipped items", "failures", len(res.Failures))
	}

	l.logger.Info("synchronization cycle complete",
		"actions", len(res.Actions),
		"failures", len(res.Failures))
}
