package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/creek-flow-service/internal/adapter/http"
	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	result   pipeline.Result
	err      error
	readyErr error

	lastReference time.Time
	lastRecord    bool
}

func (m *mockRunner) RunRealTime(_ context.Context) (pipeline.Result, error) {
	return m.result, m.err
}

func (m *mockRunner) RunHistorical(_ context.Context, ref time.Time, record bool) (pipeline.Result, error) {
	m.lastReference = ref
	m.lastRecord = record
	return m.result, m.err
}

func (m *mockRunner) CheckReadiness(_ context.Context) error { return m.readyErr }

type mockHistory struct {
	records []domain.PredictionRecord
	err     error
}

func (m *mockHistory) Recent(_ context.Context, _ int) ([]domain.PredictionRecord, error) {
	return m.records, m.err
}

func testResult() pipeline.Result {
	obs := domain.Observation{Timestamp: time.Date(2024, 1, 8, 18, 0, 0, 0, time.UTC), CFS: 150}
	return pipeline.Result{
		Vector: domain.FeatureVector{
			"Shoal_Creek":      domain.Some(obs),
			"Shoal_Creek_Lag1": domain.Absent,
		},
		Row:           domain.Row{Names: []string{"Shoal_Creek", "Shoal_Creek_Lag1"}},
		PredictedCFS:  42.5,
		Key:           "2024-01-08 12:00:00",
		RecordOutcome: domain.RecordAppended,
	}
}

func newTestServer(runner *mockRunner, history *mockHistory) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", runner, history, logger)
}

func doGet(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := doGet(newTestServer(&mockRunner{}, &mockHistory{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := doGet(newTestServer(&mockRunner{}, &mockHistory{}), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		runner := &mockRunner{readyErr: fmt.Errorf("no run yet")}
		rec := doGet(newTestServer(runner, &mockHistory{}), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestPredict(t *testing.T) {
	runner := &mockRunner{result: testResult()}
	rec := doGet(newTestServer(runner, &mockHistory{}), "/predict")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Key          string  `json:"recorded_at"`
		PredictedCFS float64 `json:"predicted_cfs"`
		Features     map[string]struct {
			CFS        *float64 `json:"cfs"`
			RecordedAt string   `json:"recorded_at"`
		} `json:"features"`
		Order    []string `json:"feature_order"`
		Recorded string   `json:"record_outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "2024-01-08 12:00:00", body.Key)
	assert.Equal(t, 42.5, body.PredictedCFS)
	assert.Equal(t, []string{"Shoal_Creek", "Shoal_Creek_Lag1"}, body.Order)
	assert.Equal(t, "appended", body.Recorded)

	require.NotNil(t, body.Features["Shoal_Creek"].CFS)
	assert.Equal(t, 150.0, *body.Features["Shoal_Creek"].CFS)
	assert.Equal(t, "01/08/2024 12:00 PM", body.Features["Shoal_Creek"].RecordedAt)

	assert.Nil(t, body.Features["Shoal_Creek_Lag1"].CFS, "absent feature renders null")
	assert.Equal(t, "N/A", body.Features["Shoal_Creek_Lag1"].RecordedAt)
}

func TestPredict_NoReference(t *testing.T) {
	runner := &mockRunner{err: domain.ErrNoReference}
	rec := doGet(newTestServer(runner, &mockHistory{}), "/predict")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPredict_SchemaUnavailable(t *testing.T) {
	runner := &mockRunner{err: domain.ErrSchemaUnavailable}
	rec := doGet(newTestServer(runner, &mockHistory{}), "/predict")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPredictHistorical(t *testing.T) {
	runner := &mockRunner{result: testResult()}
	srv := newTestServer(runner, &mockHistory{})

	rec := doGet(srv, "/predict/historical?at=2024-01-08T12:00:00Z&record=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), runner.lastReference)
	assert.True(t, runner.lastRecord)
}

func TestPredictHistorical_BadTimestamp(t *testing.T) {
	rec := doGet(newTestServer(&mockRunner{}, &mockHistory{}), "/predict/historical?at=01/08/2024")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictions(t *testing.T) {
	history := &mockHistory{records: []domain.PredictionRecord{
		{Key: "2024-01-08 12:00:00", Label: "Sugar_Creek_Prediction", PredictedCFS: 42.5},
	}}
	rec := doGet(newTestServer(&mockRunner{}, history), "/predictions?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Predictions []domain.PredictionRecord `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, 42.5, body.Predictions[0].PredictedCFS)
}

func TestPredictions_BadLimit(t *testing.T) {
	rec := doGet(newTestServer(&mockRunner{}, &mockHistory{}), "/predictions?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictions_QueryError(t *testing.T) {
	history := &mockHistory{err: errors.New("db closed")}
	rec := doGet(newTestServer(&mockRunner{}, history), "/predictions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPredictions_Empty(t *testing.T) {
	rec := doGet(newTestServer(&mockRunner{}, &mockHistory{}), "/predictions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"predictions":[]}`, rec.Body.String())
}
