package domain

import (
	"time"
)

// LogKeyFormat is the canonical persisted timestamp format, rendered in the
// display zone. It is the deduplication key of the observation log.
const LogKeyFormat = "2006-01-02 15:04:05"

// DisplayFormat is the human-facing timestamp form. Never persisted.
const DisplayFormat = "01/02/2006 03:04 PM"

// SearchHalfWidth bounds the window around a lag target inside which an
// observation may satisfy the lag feature.
const SearchHalfWidth = 30 * time.Minute

// displayZone is where the gauges sit. Loaded once; time.LoadLocation only
// fails when the tzdata is broken, so fall back to a fixed offset rather
// than panicking at import time.
var displayZone = loadDisplayZone()

func loadDisplayZone() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// ToUTC normalizes any zone-aware instant to the canonical internal zone.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ToDisplayZone converts an instant to the display zone for log keys and
// user-facing output.
func ToDisplayZone(t time.Time) time.Time {
	return t.In(displayZone)
}

// LagTarget computes the target instant for a lag offset relative to a
// reference instant. Arithmetic is absolute; the result stays in UTC.
func LagTarget(reference time.Time, lag LagOffset) time.Time {
	return reference.UTC().Add(-lag.Offset)
}

// SearchWindow returns the [start, end] query window centered on a lag target.
func SearchWindow(target time.Time) (time.Time, time.Time) {
	return target.Add(-SearchHalfWidth), target.Add(SearchHalfWidth)
}

// FormatLogKey renders an instant as the persisted log key.
func FormatLogKey(t time.Time) string {
	return ToDisplayZone(t).Format(LogKeyFormat)
}

// ParseLogKey parses a persisted log key back to an absolute instant.
// Round-trips exactly with FormatLogKey since sub-second precision is never
// persisted.
func ParseLogKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(LogKeyFormat, key, displayZone)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDisplay renders an instant for user-facing output. Absent readings
// should render as "N/A" instead; see Reading.DisplayTime.
func FormatDisplay(t time.Time) string {
	return ToDisplayZone(t).Format(DisplayFormat)
}

// DisplayTime renders the reading's timestamp, or "N/A" when absent.
func (r Reading) DisplayTime() string {
	if !r.Valid {
		return "N/A"
	}
	return FormatDisplay(r.Timestamp)
}

// Nearest selects the observation minimizing absolute time distance to the
// target instant. Pure: no network, no zones beyond comparing the provided
// instants. On an exact tie the first-encountered observation wins, which is
// deterministic given input order (NWIS series are chronological). Empty
// input returns Absent.
func Nearest(observations []Observation, target time.Time) Reading {
	if len(observations) == 0 {
		return Absent
	}

	best := observations[0]
	bestDist := absDuration(observations[0].Timestamp.Sub(target))
	for _, obs := range observations[1:] {
		if d := absDuration(obs.Timestamp.Sub(target)); d < bestDist {
			best = obs
			bestDist = d
		}
	}
	return Some(best)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
