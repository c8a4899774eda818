package progress

import "math"

// Settings is the settings-store capability the tracker reads.
type Settings interface {
	// CompletionPercentage is the share of units (0-100) that counts as read.
	CompletionPercentage() float64
}

// StaticSettings is a fixed completion percentage.
type StaticSettings float64

// CompletionPercentage implements Settings.
func (s StaticSettings) CompletionPercentage() float64 { return float64(s) }

// Limit is the unit count at or above which r counts as finished.
func Limit(r Result, percentage float64) float64 {
	return math.Floor(r.Total * percentage / 100)
}

// Percentage is the fractional position of r towards its limit, in [0,1].
// A total of zero yields 0; a limit below one yields 1.
func Percentage(r Result, percentage float64) float64 {
	if r.Total == 0 {
		return 0
	}
	limit := Limit(r, percentage)
	if limit < 1 {
		return 1
	}
	p := r.Current / limit
	if p > 1 {
		return 1
	}
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	return p
}

// Finished reports whether r reached its limit. A limit below one counts
// as finished.
func Finished(r Result, percentage float64) bool {
	limit := Limit(r, percentage)
	if limit < 1 {
		return true
	}
	return r.Current >= limit
}
