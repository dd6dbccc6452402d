package models

import "time"

// MsPerDay is one UTC day in milliseconds.
const MsPerDay = 86_400_000

// DayKey maps a Unix-millisecond timestamp to its UTC calendar day.
func DayKey(ts int64) int64 {
	return ts / MsPerDay
}

// MsToTime converts Unix milliseconds to a UTC time.Time.
func MsToTime(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}

// TimeToMs converts a time.Time to Unix milliseconds.
func TimeToMs(t time.Time) int64 {
	return t.UnixMilli()
}
