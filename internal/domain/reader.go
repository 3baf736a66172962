package domain

import (
	"context"
	"time"
)

// GaugeReader fetches observations for one site from the gauge data source.
// Implementations absorb transport and parse failures: an empty series or an
// absent reading is the only failure surface.
type GaugeReader interface {
	// FetchSeries returns the site's observations inside [start, end],
	// in response order.
	FetchSeries(ctx context.Context, siteID string, start, end time.Time) []Observation

	// FetchLatest returns the site's most recent observation.
	FetchLatest(ctx context.Context, siteID string) Reading
}
