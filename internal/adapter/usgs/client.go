// Package usgs reads instantaneous streamflow values from the USGS NWIS API.
package usgs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
)

// parameterCode selects instantaneous discharge in CFS.
const parameterCode = "00060"

// queryTimeFormat is the startDT/endDT form the NWIS API accepts.
const queryTimeFormat = "2006-01-02T15:04:05Z"

// nwisTimeFormat is how NWIS renders observation timestamps: fractional
// seconds plus a UTC offset, e.g. "2024-01-01T06:00:00.000-06:00".
const nwisTimeFormat = "2006-01-02T15:04:05.000-07:00"

// Client fetches gauge observations from the NWIS instantaneous-values
// service. All transport and parse failures absorb to "no data": the caller
// sees an empty series or an absent reading, never an error. One bad gauge
// must not abort a whole prediction run.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWIS client with a bounded per-request timeout.
// Timeout expiry is treated identically to any other transport failure.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://waterservices.usgs.gov/nwis/iv/",
		metrics: metrics,
		logger:  logger,
	}
}

// FetchSeries queries one site for the [start, end] window and returns its
// observations in response order, timestamps normalized to UTC. Empty on any
// failure.
func (c *Client) FetchSeries(ctx context.Context, siteID string, start, end time.Time) []domain.Observation {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteID},
		"parameterCd": {parameterCode},
		"startDT":     {start.UTC().Format(queryTimeFormat)},
		"endDT":       {end.UTC().Format(queryTimeFormat)},
	}
	return c.doRequest(ctx, params, siteID, "window")
}

// FetchLatest queries one site without a window, which makes NWIS return the
// most recent observation. Absent on any failure.
func (c *Client) FetchLatest(ctx context.Context, siteID string) domain.Reading {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteID},
		"parameterCd": {parameterCode},
	}
	obs := c.doRequest(ctx, params, siteID, "latest")
	if len(obs) == 0 {
		return domain.Absent
	}
	// The no-window query returns the newest entry first.
	return domain.Some(obs[0])
}

func (c *Client) doRequest(ctx context.Context, params url.Values, siteID, query string) []domain.Observation {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(query, "transport_error").Inc()
		c.logger.Warn("build nwis request failed", "site", siteID, "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(query, "transport_error").Inc()
		c.logger.Warn("nwis request failed", "site", siteID, "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(query, "transport_error").Inc()
		c.logger.Warn("nwis request rejected", "site", siteID, "query", query, "status", resp.StatusCode)
		return nil
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.FetchRequests.WithLabelValues(query, "parse_error").Inc()
		c.logger.Warn("nwis response unparseable", "site", siteID, "query", query, "error", err)
		return nil
	}

	obs := extractObservations(body)
	if len(obs) == 0 {
		c.metrics.FetchRequests.WithLabelValues(query, "empty").Inc()
		c.logger.Debug("nwis returned no observations", "site", siteID, "query", query)
		return nil
	}

	c.metrics.FetchRequests.WithLabelValues(query, "success").Inc()
	return obs
}

// extractObservations walks the nested NWIS structure. Any shape deviation
// (missing series, malformed entry) yields fewer observations, not an error.
func extractObservations(body response) []domain.Observation {
	if len(body.Value.TimeSeries) == 0 || len(body.Value.TimeSeries[0].Values) == 0 {
		return nil
	}

	entries := body.Value.TimeSeries[0].Values[0].Value
	obs := make([]domain.Observation, 0, len(entries))
	for _, e := range entries {
		ts, err := parseNWISTime(e.DateTime)
		if err != nil {
			continue
		}
		cfs, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			continue
		}
		obs = append(obs, domain.Observation{Timestamp: ts, CFS: cfs})
	}
	return obs
}

func parseNWISTime(s string) (time.Time, error) {
	t, err := time.Parse(nwisTimeFormat, s)
	if err != nil {
		// Some series omit fractional seconds.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

// NWIS instantaneous-values response types, trimmed to the fields we read.

type response struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	Values []valueBlock `json:"values"`
}

type valueBlock struct {
	Value []valueEntry `json:"value"`
}

type valueEntry struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}
