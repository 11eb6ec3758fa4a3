// Package ramp computes warmup daily action limits for newly active accounts.
// New automated accounts must grow sending volume gradually or the target
// platform flags them; the ramp is keyed to calendar days since the account's
// first ever scheduled action on the channel, not day-of-week.
package ramp

// DefaultTiers is the reference ramp: 5/day for the first week, then +5 per
// week up to 25/day from day 28 on.
var DefaultTiers = []int{5, 10, 15, 20, 25}

// Limiter maps elapsed days to a daily action cap. Zero value is unusable;
// construct with New.
type Limiter struct {
	tiers []int
}

func New(tiers []int) *Limiter {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	return &Limiter{tiers: tiers}
}

// DailyLimit returns the cap for an account whose first scheduled action was
// daysSinceFirst calendar days ago. Negative input is treated as day 0.
// Monotonically non-decreasing in daysSinceFirst.
func (l *Limiter) DailyLimit(daysSinceFirst int) int {
	if daysSinceFirst < 0 {
		daysSinceFirst = 0
	}
	week := daysSinceFirst / 7
	if week >= len(l.tiers) {
		week = len(l.tiers) - 1
	}
	return l.tiers[week]
}
