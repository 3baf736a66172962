package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArtifact = `{
	"model_version": "scpm2",
	"feature_names": ["Shoal_Creek", "Shoal_Creek_Lag1", "Swan_Creek"],
	"coefficients": [0.5, 0.25, 1.0],
	"intercept": 10.0
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(testArtifact))
	require.NoError(t, err)

	assert.Equal(t, "scpm2", m.Version())
	assert.Equal(t, []string{"Shoal_Creek", "Shoal_Creek_Lag1", "Swan_Creek"}, m.FeatureNames())
}

func TestParse_EmptySchema(t *testing.T) {
	_, err := Parse([]byte(`{"model_version":"x","feature_names":[],"coefficients":[]}`))
	require.ErrorIs(t, err, domain.ErrSchemaUnavailable)
}

func TestParse_CoefficientMismatch(t *testing.T) {
	_, err := Parse([]byte(`{"feature_names":["a","b"],"coefficients":[1.0]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coefficients")
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("not-json{{{"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scpm2.json")
	require.NoError(t, os.WriteFile(path, []byte(testArtifact), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scpm2", m.Version())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestPredict(t *testing.T) {
	m, err := Parse([]byte(testArtifact))
	require.NoError(t, err)

	t.Run("full row", func(t *testing.T) {
		got, err := m.Predict([]float64{100, 80, 40})
		require.NoError(t, err)
		assert.InDelta(t, 10+0.5*100+0.25*80+1.0*40, got, 1e-9)
	})

	t.Run("NaN features are skipped", func(t *testing.T) {
		got, err := m.Predict([]float64{100, math.NaN(), 40})
		require.NoError(t, err)
		assert.InDelta(t, 10+0.5*100+1.0*40, got, 1e-9)
		assert.False(t, math.IsNaN(got))
	})

	t.Run("wrong width fails", func(t *testing.T) {
		_, err := m.Predict([]float64{1, 2})
		require.Error(t, err)
	})
}
