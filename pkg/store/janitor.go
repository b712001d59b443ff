package store

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically reconciles secondary indexes on backends that support
// it, repairing the dangling-member window left by non-atomic multi-key
// writes (a crash between a primary delete and its index cleanup).
type Janitor struct {
	store    Store
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	onSweep  func(removed int, err error)
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithSweepCallback registers a callback invoked after every sweep, used for
// logging and metrics.
func WithSweepCallback(fn func(removed int, err error)) JanitorOption {
	return func(j *Janitor) { j.onSweep = fn }
}

// WithSweepTimeout bounds the duration of a single sweep.
func WithSweepTimeout(d time.Duration) JanitorOption {
	return func(j *Janitor) { j.timeout = d }
}

// NewJanitor creates a janitor sweeping the given store on a cron schedule
// (for example "@every 1h"). The store does not have to implement
// Reconciler; sweeps are then no-ops.
func NewJanitor(s Store, schedule string, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		store:    s,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  time.Minute,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the sweep and begins running it.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep runs a single reconciliation pass.
func (j *Janitor) Sweep() {
	r, ok := j.store.(Reconciler)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := r.ReconcileIndexes(ctx)
	if j.onSweep != nil {
		j.onSweep(removed, err)
	}
}
