// Package compliance enforces daily and weekly action caps before a send is
// allowed to proceed. Usage is read fresh from persisted step history on
// every decision, so a single scheduler process never double-books a cap.
package compliance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/config"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
)

// UsageSource reports executed-action history for a (workspace, channel)
// pair. Backed by the step repository in production.
type UsageSource interface {
	// CountExecutedSince counts actions performed at or after since.
	CountExecutedSince(ctx context.Context, workspaceID string, channel model.Channel, since time.Time) (int, error)
	// FirstActionAt returns the timestamp of the first ever scheduled action,
	// or nil when the channel has never been used.
	FirstActionAt(ctx context.Context, workspaceID string, channel model.Channel) (*time.Time, error)
}

// Decision is the gate's verdict for one prospective action. RetryAt is set
// only on a blocked decision and points at the start of the next local
// business-hours window.
type Decision struct {
	Allowed        bool
	RemainingToday int
	RemainingWeek  int
	Reason         string
	RetryAt        time.Time
}

type Gate struct {
	usage            UsageSource
	limiter          *ramp.Limiter
	weeklyMultiplier int
	hours            config.HoursConfig
	now              func() time.Time
	log              *zap.Logger
}

func NewGate(usage UsageSource, limiter *ramp.Limiter, weeklyMultiplier int, hours config.HoursConfig, now func() time.Time, log *zap.Logger) *Gate {
	if now == nil {
		now = time.Now
	}
	if weeklyMultiplier <= 0 {
		weeklyMultiplier = 5
	}
	if hours.WindowEnd == 0 {
		hours = config.HoursConfig{WindowStart: 9, WindowEnd: 17}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{usage: usage, limiter: limiter, weeklyMultiplier: weeklyMultiplier, hours: hours, now: now, log: log}
}

// Check decides whether one more action on the channel is allowed right now.
// The daily cap follows the warmup ramp keyed to calendar days since the
// workspace's first scheduled action on this channel; the weekly cap is the
// daily cap times the configured multiplier over a rolling 7 days.
func (g *Gate) Check(ctx context.Context, workspaceID string, channel model.Channel) (*Decision, error) {
	now := g.now().UTC()

	first, err := g.usage.FirstActionAt(ctx, workspaceID, channel)
	if err != nil {
		return nil, fmt.Errorf("first action lookup: %w", err)
	}

	days := 0
	if first != nil {
		days = calendarDaysBetween(first.UTC(), now)
	}
	daily := g.limiter.DailyLimit(days)
	weekly := daily * g.weeklyMultiplier

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	usedToday, err := g.usage.CountExecutedSince(ctx, workspaceID, channel, dayStart)
	if err != nil {
		return nil, fmt.Errorf("daily usage lookup: %w", err)
	}
	usedWeek, err := g.usage.CountExecutedSince(ctx, workspaceID, channel, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("weekly usage lookup: %w", err)
	}

	d := &Decision{
		RemainingToday: daily - usedToday,
		RemainingWeek:  weekly - usedWeek,
	}
	switch {
	case d.RemainingToday <= 0:
		d.Reason = fmt.Sprintf("daily limit of %d reached (warmup day %d)", daily, days)
	case d.RemainingWeek <= 0:
		d.Reason = fmt.Sprintf("weekly limit of %d reached", weekly)
	default:
		d.Allowed = true
	}

	if !d.Allowed {
		d.RetryAt = g.nextWindowOpen(now)
		g.log.Info("compliance gate blocked action",
			zap.String("workspace", workspaceID),
			zap.String("channel", string(channel)),
			zap.String("reason", d.Reason))
	}
	return d, nil
}

// nextWindowOpen is windowStart on the local day after now, in UTC.
func (g *Gate) nextWindowOpen(now time.Time) time.Time {
	offset := time.Duration(g.hours.LocalOffsetHours) * time.Hour
	local := now.Add(offset).AddDate(0, 0, 1)
	open := time.Date(local.Year(), local.Month(), local.Day(), g.hours.WindowStart, 0, 0, 0, time.UTC)
	return open.Add(-offset)
}

func calendarDaysBetween(first, now time.Time) int {
	f := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(n.Sub(f).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
