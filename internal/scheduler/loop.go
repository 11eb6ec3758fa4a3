// Package scheduler runs the periodic tick that drives campaign execution:
// find campaigns with due steps, run them one at a time, then do the
// housekeeping tasks.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/engine"
)

// CampaignRunner executes all due steps of one campaign.
type CampaignRunner interface {
	ExecuteCampaign(ctx context.Context, campaignID int64, userID string, opts engine.Options) (*engine.RunResult, error)
}

// DueSource lists campaigns that have at least one due step.
type DueSource interface {
	ListDueCampaignIDs(ctx context.Context, now time.Time) ([]int64, error)
}

// Task is a housekeeping job run once per tick, after campaign execution.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Loop is the scheduler daemon. One goroutine, one tick at a time: if a tick
// overruns the interval, the next one is skipped rather than stacked.
type Loop struct {
	Due      DueSource
	Runner   CampaignRunner
	Tasks    []Task
	Interval time.Duration
	Log      *zap.Logger
	Now      func() time.Time

	ticking atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// Start runs the loop until Stop is called or ctx is cancelled. An immediate
// first tick fires before the interval timer starts.
func (l *Loop) Start(ctx context.Context) {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	defer close(l.done)

	l.Log.Info("scheduler started", zap.Duration("interval", l.Interval))
	l.Tick(ctx)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Log.Info("scheduler stopping", zap.String("reason", "context cancelled"))
			return
		case <-l.stop:
			l.Log.Info("scheduler stopping", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for the current tick to finish.
func (l *Loop) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
}

// Tick runs one scheduling pass. Re-entrant calls are rejected: a pass that
// outlives the interval must not overlap the next one.
func (l *Loop) Tick(ctx context.Context) {
	if !l.ticking.CompareAndSwap(false, true) {
		l.Log.Warn("tick still running, skipping")
		return
	}
	defer l.ticking.Store(false)

	started := l.now()

	ids, err := l.Due.ListDueCampaignIDs(ctx, started)
	if err != nil {
		l.Log.Error("listing due campaigns failed", zap.Error(err))
	} else {
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			res, err := l.Runner.ExecuteCampaign(ctx, id, "scheduler", engine.Options{})
			if err != nil {
				l.Log.Error("campaign execution failed", zap.Int64("campaign_id", id), zap.Error(err))
				continue
			}
			l.Log.Info("campaign tick processed",
				zap.Int64("campaign_id", id),
				zap.String("run_id", res.RunID),
				zap.Int("total", res.Total),
				zap.Int("executed", res.Executed))
		}
	}

	for _, task := range l.Tasks {
		if ctx.Err() != nil {
			return
		}
		if err := task.Run(ctx); err != nil {
			l.Log.Error("maintenance task failed", zap.String("task", task.Name), zap.Error(err))
		}
	}

	l.Log.Debug("tick finished", zap.Duration("took", l.now().Sub(started)))
}
