package engine

import "github.com/quantfx/signalengine/models"

// DailyLimiter is an explicit rate-limit value: the UTC day key and how
// many signals were accepted on that day. It is copied, never mutated in
// place, so state transitions stay visible and testable.
type DailyLimiter struct {
	Day   int64
	Count int
}

// Roll resets the counter when ts falls on a new UTC day.
func (l DailyLimiter) Roll(ts int64) DailyLimiter {
	if day := models.DayKey(ts); day != l.Day {
		return DailyLimiter{Day: day}
	}
	return l
}

// Exhausted reports whether the daily cap has been reached. Call Roll
// first so a stale day never blocks a fresh one.
func (l DailyLimiter) Exhausted(max int) bool {
	return max > 0 && l.Count >= max
}

// Record returns the limiter with one more accepted signal on ts's day.
func (l DailyLimiter) Record(ts int64) DailyLimiter {
	l = l.Roll(ts)
	l.Count++
	return l
}
