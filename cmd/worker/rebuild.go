package main

import (
	"context"
	"time"

	"repairpos/internal/config"
	appctx "repairpos/internal/core/context"
	"repairpos/pkg/logger"
)

// Rebuilder refreshes cached quantities of recently changed products.
type Rebuilder interface {
	RebuildChangedSince(ctx context.Context, since time.Time) (int, error)
}

// Locker grants a lease for one pass. Passes run unguarded without one.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// RebuildWorker periodically rebuilds the quantity cache. Each pass covers
// the lookback window, so a missed tick is repaired by the next one.
type RebuildWorker struct {
	view     Rebuilder
	lock     Locker
	interval time.Duration
	lookback time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewRebuildWorker creates the worker.
func NewRebuildWorker(view Rebuilder, cfg config.WorkerConfig, log *logger.Logger) *RebuildWorker {
	lookback := cfg.Lookback
	if lookback < cfg.RebuildInterval {
		lookback = cfg.RebuildInterval
	}
	return &RebuildWorker{
		view:     view,
		interval: cfg.RebuildInterval,
		lookback: lookback,
		log:      log.WithComponent("quantity-rebuild"),
		now:      time.Now,
	}
}

// WithLock makes every pass hold lock, so parallel workers do not repeat
// each other's rebuilds.
func (w *RebuildWorker) WithLock(lock Locker) *RebuildWorker {
	w.lock = lock
	return w
}

// Run rebuilds once immediately and then on every tick until ctx is done.
func (w *RebuildWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RebuildWorker) tick(ctx context.Context) {
	ctx = appctx.StartOperation(ctx, "quantity-rebuild")
	log := w.log.WithContext(ctx)

	if w.lock != nil {
		release, ok, err := w.lock.TryAcquire(ctx)
		switch {
		case err != nil:
			log.Warnw("pass lock unavailable, rebuilding without it", "error", err)
		case !ok:
			log.Debugw("another worker holds the pass lock")
			return
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warnw("release pass lock", "error", err)
				}
			}()
		}
	}

	since := w.now().Add(-w.lookback)
	n, err := w.view.RebuildChangedSince(ctx, since)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorw("quantity rebuild failed", "since", since, "error", err)
		}
		return
	}
	log.Debugw("quantity rebuild done", "products", n, "since", since)
}
