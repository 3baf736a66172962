// Package pipeline orchestrates feature assembly, scoring, and recording.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
)

// Assembler builds the named feature vector for one prediction run by
// fanning a gauge reader out across all configured gauges and lag offsets.
// Fetches run sequentially and results are assigned by feature name, so
// assembly order is deterministic.
type Assembler struct {
	reader  domain.GaugeReader
	gauges  []domain.Gauge
	lags    []domain.LagOffset
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAssembler creates an Assembler over the configured gauges with the
// standard 1/3/7-day lag offsets.
func NewAssembler(reader domain.GaugeReader, gauges []domain.Gauge, metrics *observability.Metrics, logger *slog.Logger) *Assembler {
	return &Assembler{
		reader:  reader,
		gauges:  gauges,
		lags:    domain.StandardLags,
		metrics: metrics,
		logger:  logger,
	}
}

// AssembleRealTime builds the feature vector anchored to each gauge's own
// most recent observation. Gauges report on independent cadences, so lag
// features for a gauge are computed relative to that gauge's latest
// timestamp, not a single shared reference. A gauge with no latest reading
// contributes absent features only; if no gauge yields a usable timestamp the
// whole run fails with ErrNoReference before any lag fetch happens.
func (a *Assembler) AssembleRealTime(ctx context.Context) (domain.FeatureVector, error) {
	vector := make(domain.FeatureVector, len(a.gauges)*(len(a.lags)+1))

	latest := make(map[string]domain.Reading, len(a.gauges))
	anyReference := false
	for _, g := range a.gauges {
		r := a.reader.FetchLatest(ctx, g.SiteID)
		latest[g.Name] = r
		vector[g.Name] = r
		if r.Valid {
			anyReference = true
		} else {
			a.metrics.FeaturesMissing.Inc()
			a.logger.Warn("gauge has no current reading", "gauge", g.Name, "site", g.SiteID)
		}
	}
	if !anyReference {
		return nil, domain.ErrNoReference
	}

	for _, g := range a.gauges {
		ref := latest[g.Name]
		for _, lag := range a.lags {
			name := domain.FeatureName(g, lag)
			if !ref.Valid {
				// No reference timestamp for this gauge; lag lookup is skipped
				// entirely rather than anchored to some other gauge's clock.
				vector[name] = domain.Absent
				continue
			}
			vector[name] = a.fetchLag(ctx, g, ref.Timestamp, lag)
		}
	}

	return vector, nil
}

// AssembleHistorical builds the feature vector for a caller-chosen reference
// instant, which anchors all gauges and all lag offsets uniformly. The
// zero-lag feature is resolved the same way as a lag: nearest observation
// inside the search window around the reference itself.
func (a *Assembler) AssembleHistorical(ctx context.Context, reference time.Time) (domain.FeatureVector, error) {
	reference = domain.ToUTC(reference)
	vector := make(domain.FeatureVector, len(a.gauges)*(len(a.lags)+1))

	for _, g := range a.gauges {
		vector[g.Name] = a.fetchLag(ctx, g, reference, domain.LagOffset{})
		for _, lag := range a.lags {
			vector[domain.FeatureName(g, lag)] = a.fetchLag(ctx, g, reference, lag)
		}
	}

	return vector, nil
}

// fetchLag resolves one (gauge, lag) feature: fetch the ±30 minute window
// around the lag target, then pick the nearest observation. Absent when the
// window is empty or the fetch failed.
func (a *Assembler) fetchLag(ctx context.Context, g domain.Gauge, reference time.Time, lag domain.LagOffset) domain.Reading {
	target := domain.LagTarget(reference, lag)
	start, end := domain.SearchWindow(target)

	obs := a.reader.FetchSeries(ctx, g.SiteID, start, end)
	r := domain.Nearest(obs, target)
	if !r.Valid {
		a.metrics.FeaturesMissing.Inc()
		a.logger.Debug("no observation in search window",
			"gauge", g.Name, "site", g.SiteID, "target", target)
	}
	return r
}
