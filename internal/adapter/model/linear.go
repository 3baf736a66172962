// Package model loads the pre-trained Sugar Creek regression artifact.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
)

// artifact is the on-disk form of a trained model: the declared feature
// schema plus linear coefficients exported from the training pipeline.
type artifact struct {
	ModelVersion string    `json:"model_version"`
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Linear is a regression model scoring a fixed, named feature row. It
// implements domain.Model. Constructed once at process start and passed into
// the pipeline; never re-loaded mid-run.
type Linear struct {
	version      string
	featureNames []string
	coefficients []float64
	intercept    float64
}

// Load reads a model artifact from disk. An artifact that declares no
// features is unusable: domain.ErrSchemaUnavailable.
func Load(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return Parse(data)
}

// Parse builds a model from raw artifact JSON.
func Parse(data []byte) (*Linear, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(a.FeatureNames) == 0 {
		return nil, domain.ErrSchemaUnavailable
	}
	if len(a.Coefficients) != len(a.FeatureNames) {
		return nil, fmt.Errorf("model artifact: %d coefficients for %d features",
			len(a.Coefficients), len(a.FeatureNames))
	}
	return &Linear{
		version:      a.ModelVersion,
		featureNames: a.FeatureNames,
		coefficients: a.Coefficients,
		intercept:    a.Intercept,
	}, nil
}

// Version returns the artifact's model version string.
func (m *Linear) Version() string {
	return m.version
}

// FeatureNames returns the declared schema in declared order. Callers must
// not mutate the returned slice.
func (m *Linear) FeatureNames() []string {
	return m.featureNames
}

// Predict scores one row aligned positionally with FeatureNames. NaN values
// mark missing features and contribute nothing to the estimate, so partial
// data still yields a finite prediction. A row of the wrong width is a schema
// mismatch and fails.
func (m *Linear) Predict(row []float64) (float64, error) {
	if len(row) != len(m.featureNames) {
		return 0, fmt.Errorf("predict: row has %d values, schema declares %d",
			len(row), len(m.featureNames))
	}

	estimate := m.intercept
	for i, v := range row {
		if math.IsNaN(v) {
			continue
		}
		estimate += m.coefficients[i] * v
	}
	return estimate, nil
}
