package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagTarget(t *testing.T) {
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC), LagTarget(ref, StandardLags[0]))
	assert.Equal(t, time.Date(2023, 12, 29, 12, 0, 0, 0, time.UTC), LagTarget(ref, StandardLags[1]))
	assert.Equal(t, time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC), LagTarget(ref, StandardLags[2]))
}

func TestLagTarget_NormalizesZone(t *testing.T) {
	// A Central-zone reference must produce the same absolute target as its
	// UTC equivalent: arithmetic happens on absolute instants, never on
	// wall-clock strings.
	central := time.FixedZone("CST", -6*60*60)
	ref := time.Date(2024, 1, 1, 6, 0, 0, 0, central) // 12:00 UTC

	target := LagTarget(ref, StandardLags[0])
	assert.Equal(t, time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC), target)
	assert.Equal(t, time.UTC, target.Location())
}

func TestSearchWindow(t *testing.T) {
	target := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	start, end := SearchWindow(target)

	assert.Equal(t, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC), end)
}

func TestLogKey_RoundTrip(t *testing.T) {
	// Sub-second precision is not persisted, so a whole-second instant must
	// survive format → parse exactly.
	instant := time.Date(2024, 6, 15, 18, 30, 45, 0, time.UTC)

	key := FormatLogKey(instant)
	parsed, err := ParseLogKey(key)
	require.NoError(t, err)
	assert.True(t, instant.Equal(parsed), "want %v, got %v", instant, parsed)
}

func TestParseLogKey_Invalid(t *testing.T) {
	_, err := ParseLogKey("01/01/2024 12:00 PM")
	require.Error(t, err)
}

func TestFormatLogKey_DisplayZone(t *testing.T) {
	// 2024-01-01T12:00Z is 06:00 in US Central (CST, winter).
	instant := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01 06:00:00", FormatLogKey(instant))
}

func TestNearest(t *testing.T) {
	target := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return target.Add(time.Duration(min) * time.Minute) }

	t.Run("picks minimum distance", func(t *testing.T) {
		obs := []Observation{
			{Timestamp: at(-25), CFS: 100},
			{Timestamp: at(-10), CFS: 110},
			{Timestamp: at(5), CFS: 120},
			{Timestamp: at(20), CFS: 130},
		}
		r := Nearest(obs, target)
		require.True(t, r.Valid)
		assert.Equal(t, 120.0, r.CFS)
	})

	t.Run("first wins on exact tie", func(t *testing.T) {
		obs := []Observation{
			{Timestamp: at(-15), CFS: 100},
			{Timestamp: at(15), CFS: 200},
		}
		r := Nearest(obs, target)
		require.True(t, r.Valid)
		assert.Equal(t, 100.0, r.CFS)
	})

	t.Run("empty input is absent", func(t *testing.T) {
		r := Nearest(nil, target)
		assert.False(t, r.Valid)
		assert.Equal(t, "N/A", r.DisplayTime())
	})

	t.Run("single far observation still wins", func(t *testing.T) {
		// Window filtering happens in the reader; the resolver takes whatever
		// candidates it is given.
		only := Observation{Timestamp: target.Add(26 * time.Hour), CFS: 150}
		r := Nearest([]Observation{only}, target)
		require.True(t, r.Valid)
		assert.Equal(t, 150.0, r.CFS)
	})
}
