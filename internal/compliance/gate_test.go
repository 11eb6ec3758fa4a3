package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/config"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
)

type fakeUsage struct {
	first     *time.Time
	today     int
	week      int
	dayStarts []time.Time
}

func (f *fakeUsage) CountExecutedSince(_ context.Context, _ string, _ model.Channel, since time.Time) (int, error) {
	f.dayStarts = append(f.dayStarts, since)
	// The gate asks for day-start first, then rolling week.
	if since.Hour() == 0 && since.Minute() == 0 {
		return f.today, nil
	}
	return f.week, nil
}

func (f *fakeUsage) FirstActionAt(_ context.Context, _ string, _ model.Channel) (*time.Time, error) {
	return f.first, nil
}

func gateAt(now time.Time, usage *fakeUsage) *Gate {
	hours := config.HoursConfig{WindowStart: 9, WindowEnd: 17}
	return NewGate(usage, ramp.New(nil), 5, hours, func() time.Time { return now }, zap.NewNop())
}

func TestCheckFreshWorkspaceAllowed(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(now, &fakeUsage{})

	d, err := g.Check(context.Background(), "ws-1", model.ChannelNetworkConnection)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.RemainingToday) // warmup day 0
	assert.Equal(t, 25, d.RemainingWeek)
	assert.True(t, d.RetryAt.IsZero())
}

func TestCheckDailyCapReached(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, -3)
	g := gateAt(now, &fakeUsage{first: &first, today: 5, week: 5})

	d, err := g.Check(context.Background(), "ws-1", model.ChannelNetworkConnection)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.RemainingToday)
	assert.Contains(t, d.Reason, "daily limit of 5")
	assert.Contains(t, d.Reason, "warmup day 3")
	assert.Equal(t, time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), d.RetryAt)
}

func TestCheckBlockedRetryAtHonorsLocalOffset(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, -3)
	hours := config.HoursConfig{WindowStart: 9, WindowEnd: 17, LocalOffsetHours: 3}
	g := NewGate(&fakeUsage{first: &first, today: 5, week: 5}, ramp.New(nil), 5, hours,
		func() time.Time { return now }, zap.NewNop())

	d, err := g.Check(context.Background(), "ws-1", model.ChannelNetworkConnection)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	// 09:00 local on April 2nd is 06:00 UTC.
	assert.Equal(t, time.Date(2026, 4, 2, 6, 0, 0, 0, time.UTC), d.RetryAt)
}

func TestCheckRampGrowsWithAge(t *testing.T) {
	now := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, -30)
	g := gateAt(now, &fakeUsage{first: &first, today: 5, week: 10})

	d, err := g.Check(context.Background(), "ws-1", model.ChannelEmail)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 20, d.RemainingToday) // day 30 → 25/day
	assert.Equal(t, 115, d.RemainingWeek)
}

func TestCheckWeeklyCapReached(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, -2)
	g := gateAt(now, &fakeUsage{first: &first, today: 2, week: 25})

	d, err := g.Check(context.Background(), "ws-1", model.ChannelNetworkConnection)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "weekly limit")
}

func TestCheckUsesCalendarDays(t *testing.T) {
	// First action 23:59 yesterday is still one calendar day ago.
	now := time.Date(2026, 4, 8, 0, 10, 0, 0, time.UTC)
	first := time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC)
	g := gateAt(now, &fakeUsage{first: &first})

	d, err := g.Check(context.Background(), "ws-1", model.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 10, d.RemainingToday) // day 7 → 10/day
}
