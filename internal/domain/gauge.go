package domain

import (
	"fmt"
	"time"
)

// Gauge identifies one monitored USGS site. Immutable; defined in configuration.
type Gauge struct {
	// Name is the symbolic feature-name prefix, e.g. "Shoal_Creek".
	Name string
	// SiteID is the USGS site number, e.g. "03588500".
	SiteID string
}

// Observation is a single (instant, value) pair reported by one gauge.
type Observation struct {
	Timestamp time.Time // zone-aware, normalized to UTC
	CFS       float64
}

// Reading is the typed optional form of an observation: Valid is false when a
// gauge produced no usable data for a query. Missing data is carried as this
// explicit state rather than a NaN sentinel so it cannot silently poison
// arithmetic; conversion to NaN happens only at the model boundary.
type Reading struct {
	Observation
	Valid bool
}

// Absent is the zero Reading, returned when no data could be obtained.
var Absent = Reading{}

// Some wraps an observation in a valid Reading.
func Some(obs Observation) Reading {
	return Reading{Observation: obs, Valid: true}
}

// LagOffset is a named duration subtracted from a reference instant to compute
// a lag target timestamp.
type LagOffset struct {
	// Suffix appended to the gauge name, e.g. "_Lag1".
	Suffix string
	Offset time.Duration
}

// The model's lag features: 1, 3, and 7 days before the reference instant.
var StandardLags = []LagOffset{
	{Suffix: "_Lag1", Offset: 24 * time.Hour},
	{Suffix: "_Lag3", Offset: 72 * time.Hour},
	{Suffix: "_Lag7", Offset: 168 * time.Hour},
}

// FeatureName returns the feature-vector key for a gauge at a given lag.
// A zero lag yields the bare gauge name (the real-time feature).
func FeatureName(g Gauge, lag LagOffset) string {
	return g.Name + lag.Suffix
}

// PredictionRecord is the persisted outcome of one prediction run: the only
// entity that outlives a run. Key is the formatted log timestamp; at most one
// record per key exists in the observation log.
type PredictionRecord struct {
	Key          string  `json:"recorded_at"`
	Label        string  `json:"label"`
	PredictedCFS float64 `json:"predicted_cfs"`
}

func (r PredictionRecord) String() string {
	return fmt.Sprintf("%s %s %.2f", r.Key, r.Label, r.PredictedCFS)
}

// RecordOutcome reports what a log write did. A duplicate key is not an
// error: the policy here is last-wins upsert, so retried runs sharing a key
// update the row in place instead of duplicating it.
type RecordOutcome string

const (
	RecordAppended RecordOutcome = "appended"
	RecordUpdated  RecordOutcome = "updated"
)
