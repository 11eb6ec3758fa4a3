// Package schedule places outreach actions inside a local business-hours
// window. Storage is UTC throughout; only the placement decision is computed
// in the account's local time.
package schedule

import (
	"math/rand"
	"time"
)

// Placer computes concrete send timestamps. Clock and randomness are
// injectable so tests are deterministic.
type Placer struct {
	now func() time.Time
	rng *rand.Rand
}

func NewPlacer(now func() time.Time, rng *rand.Rand) *Placer {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Placer{now: now, rng: rng}
}

// PlaceNext returns a UTC timestamp dayOffset days out, inside the local
// window [windowStart, windowEnd). For day-offset 0 the result is never
// earlier than now: a current hour inside the window floors the candidate
// hour, and a current hour at or past windowEnd rolls the placement to
// windowStart on the following day. Randomized minutes (and a random hour
// within the window) break up mechanically uniform timestamps; when the
// result would not clear lastPlaced, it is nudged past it.
func (p *Placer) PlaceNext(lastPlaced time.Time, dayOffset, localOffsetHours, windowStart, windowEnd int) time.Time {
	offset := time.Duration(localOffsetHours) * time.Hour
	nowLocal := p.now().UTC().Add(offset)

	day := nowLocal.AddDate(0, 0, dayOffset)
	span := windowEnd - windowStart
	hour := windowStart + p.rng.Intn(span)
	minute := p.rng.Intn(60)

	if dayOffset == 0 {
		switch {
		case nowLocal.Hour() >= windowEnd:
			day = day.AddDate(0, 0, 1)
			hour = windowStart
		case nowLocal.Hour() >= windowStart && hour < nowLocal.Hour():
			hour = nowLocal.Hour()
		}
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	placed := local.Add(-offset)

	if !placed.After(lastPlaced) {
		placed = lastPlaced.Add(time.Duration(5+p.rng.Intn(15)) * time.Minute)
	}
	return placed
}

// NextWindowOpen returns windowStart on the local day after now, in UTC.
// Compliance deferrals land here.
func (p *Placer) NextWindowOpen(localOffsetHours, windowStart int) time.Time {
	offset := time.Duration(localOffsetHours) * time.Hour
	nowLocal := p.now().UTC().Add(offset)

	day := nowLocal.AddDate(0, 0, 1)
	local := time.Date(day.Year(), day.Month(), day.Day(), windowStart, p.rng.Intn(30), 0, 0, time.UTC)
	return local.Add(-offset)
}
