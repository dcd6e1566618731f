package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
)

// Poster hands work to the compositor loop.
type Poster interface {
	Send(fn func(*compositor.State)) bool
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically drops unpaired windows that no longer exist on
// the X server.
type Reconciler struct {
	interval time.Duration
	post     Poster
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, post Poster) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		post:     post,
		logger:   logger,
	}
}

func (r *Reconciler) String() string {
	return "reconciler"
}

// Serve runs the reconciliation loop. Blocks until ctx is cancelled.
func (r *Reconciler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			r.ReconcileNow()
		}
	}
}

// ReconcileNow queues a reconciliation pass on the loop.
func (r *Reconciler) ReconcileNow() {
	if !r.post.Send(r.reconcile) {
		r.logger.Debug("reconciler: loop stopped, pass skipped")
	}
}

// reconcile performs a single reconciliation pass on the loop goroutine.
func (r *Reconciler) reconcile(st *compositor.State) {
	// A panic here would take the whole loop down.
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	dropped, err := st.PruneUnpaired()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}
	if dropped > 0 {
		r.logger.Info("reconciler: dropped stale unpaired windows",
			"count", dropped,
			"remaining", len(st.UnpairedWindows()))
	}
}
