package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// Refresher: periodic reload of clean zones
// ─────────────────────────────────────────────────────────────

// Refreshable is what the refresher drives; Synchronizer implements it.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// Refresher runs Refresh on a cron schedule until stopped.
type Refresher struct {
	target Refreshable
	log    *zap.Logger

	mu     sync.Mutex
	sched  *cron.Cron
	cancel context.CancelFunc
}

func NewRefresher(target Refreshable, log *zap.Logger) *Refresher {
	return &Refresher{target: target, log: log.Named("refresh")}
}

// Start schedules refreshes with a standard cron spec or a descriptor such
// as "@every 1m". An empty spec disables refreshing.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if spec == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched != nil {
		return fmt.Errorf("refresher already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if err := r.target.Refresh(runCtx); err != nil {
			r.log.Warn("refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	r.sched, r.cancel = c, cancel
	r.log.Debug("refresh scheduled", zap.String("spec", spec))
	return nil
}

// Stop cancels the schedule and waits for a running refresh to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched == nil {
		return
	}
	r.cancel()
	<-r.sched.Stop().Done()
	r.sched, r.cancel = nil, nil
}
