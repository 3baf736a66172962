package domain

import (
	"errors"
	"math"
)

// ErrSchemaUnavailable is returned when the model's declared feature list
// cannot be obtained. Fatal for a run: no partial prediction is attempted and
// nothing is written to the observation log.
var ErrSchemaUnavailable = errors.New("model feature schema unavailable")

// ErrNoReference is returned when no gauge produced any usable reference
// timestamp, leaving nothing to anchor lag computation to. Fatal for a run.
var ErrNoReference = errors.New("no gauge produced a usable reference timestamp")

// Model is the prediction boundary. Internals (training, algorithm) are
// opaque; only the input-schema contract matters to the pipeline.
type Model interface {
	// FeatureNames returns the declared feature schema: exact names, exact
	// order, as the model expects its input row.
	FeatureNames() []string

	// Predict scores one row whose values align positionally with
	// FeatureNames, returning the estimated Sugar Creek flow in CFS.
	Predict(row []float64) (float64, error)
}

// FeatureVector maps feature names to readings as assembled from the gauges.
// Ephemeral: built fresh per prediction run.
type FeatureVector map[string]Reading

// Row is a model input reconciled against a declared schema: names and values
// are parallel, in the model's declared order. Absent features hold NaN.
type Row struct {
	Names  []string
	Values []float64
}

// Reconcile aligns an assembled feature vector to the model's declared schema.
// The result contains exactly the declared names in declared order; declared
// names missing from the vector become NaN, assembled names not declared are
// dropped. An empty schema means the model is unusable: ErrSchemaUnavailable.
func Reconcile(vector FeatureVector, schema []string) (Row, error) {
	if len(schema) == 0 {
		return Row{}, ErrSchemaUnavailable
	}

	row := Row{
		Names:  make([]string, len(schema)),
		Values: make([]float64, len(schema)),
	}
	for i, name := range schema {
		row.Names[i] = name
		if r, ok := vector[name]; ok && r.Valid {
			row.Values[i] = r.CFS
		} else {
			row.Values[i] = math.NaN()
		}
	}
	return row, nil
}
