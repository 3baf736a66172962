// Package domain models USGS streamflow gauge data and the feature-vector
// assembly rules used to predict flow at Sugar Creek.
//
// # Data Source
//
// Readings come from the USGS National Water Information System (NWIS)
// instantaneous-values API at https://waterservices.usgs.gov/nwis/iv/.
// Parameter code 00060 selects discharge in cubic feet per second (CFS).
// Each monitored creek is identified by an 8-digit USGS site number, e.g.
// Shoal Creek near Iron City is 03588500.
//
// # Time Conventions
//
// NWIS timestamps carry a UTC offset and fractional seconds, e.g.
// "2024-01-01T06:00:00.000-06:00". All internal arithmetic happens on
// zone-aware time.Time values normalized to UTC; conversion to the display
// zone (US Central, where the gauges sit) occurs only at log and display
// boundaries. The persisted log key format is "2006-01-02 15:04:05" in the
// display zone; sub-second precision is never persisted.
//
// # Lag Features
//
// The regression model consumes one real-time feature per gauge plus lag
// features sampled 24, 72, and 168 hours before a reference instant, named
// "<Gauge>" and "<Gauge>_Lag{1,3,7}". A lag value is the observation nearest
// in time to the lag target within a ±30 minute search window. Gauges report
// on independent cadences (typically every 15 minutes but with gaps), so the
// nearest observation may sit anywhere inside the window.
//
// # Missing Data
//
// A gauge that is offline, unparseable, or silent for a window yields an
// absent Reading, not an error. Absent readings surface as NaN in the model
// row and "N/A" in display output. Only two conditions abort a prediction
// run: the model's feature schema being unavailable, and no gauge producing
// any usable reference timestamp.
package domain
