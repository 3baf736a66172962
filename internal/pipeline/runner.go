package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
)

// RecordSink persists prediction records idempotently by key.
type RecordSink interface {
	Record(ctx context.Context, rec domain.PredictionRecord) (domain.RecordOutcome, error)
}

// Publisher pushes prediction records to an optional downstream channel.
type Publisher interface {
	Publish(ctx context.Context, rec domain.PredictionRecord) error
}

// Result carries everything one prediction run produced, for display and for
// the HTTP surface.
type Result struct {
	Vector        domain.FeatureVector
	Row           domain.Row
	PredictedCFS  float64
	Key           string
	RecordOutcome domain.RecordOutcome // empty when the run was not recorded
}

// Runner executes end-to-end prediction runs: assemble → score → record →
// publish. Per-gauge fetch failures are absorbed into absent features by the
// layers below; only a missing model schema or a missing reference timestamp
// aborts a run, and both abort before anything is written to the log.
type Runner struct {
	assembler *Assembler
	model     domain.Model
	recorder  RecordSink
	publisher Publisher // nil when kafka publishing is disabled
	label     string
	metrics   *observability.Metrics
	logger    *slog.Logger
	ready     atomic.Bool
}

// NewRunner wires a Runner. publisher may be nil.
func NewRunner(assembler *Assembler, m domain.Model, recorder RecordSink, publisher Publisher, label string, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		assembler: assembler,
		model:     m,
		recorder:  recorder,
		publisher: publisher,
		label:     label,
		metrics:   metrics,
		logger:    logger,
	}
}

// CheckReadiness returns nil once at least one run has completed
// successfully.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no prediction run has completed yet")
	}
	return nil
}

// RunRealTime performs one real-time prediction run and records it, keyed by
// the current instant.
func (r *Runner) RunRealTime(ctx context.Context) (Result, error) {
	return r.run(ctx, "realtime", func(ctx context.Context) (domain.FeatureVector, error) {
		return r.assembler.AssembleRealTime(ctx)
	}, domain.Now(), true)
}

// RunHistorical performs one prediction run anchored at the given reference
// instant. The result is recorded, keyed by the reference, only when record
// is true; interactive lookups stay out of the log.
func (r *Runner) RunHistorical(ctx context.Context, reference time.Time, record bool) (Result, error) {
	return r.run(ctx, "historical", func(ctx context.Context) (domain.FeatureVector, error) {
		return r.assembler.AssembleHistorical(ctx, reference)
	}, reference, record)
}

func (r *Runner) run(ctx context.Context, variant string, assemble func(context.Context) (domain.FeatureVector, error), keyInstant time.Time, record bool) (Result, error) {
	start := time.Now()

	vector, err := assemble(ctx)
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues(variant, runOutcome(err)).Inc()
		return Result{}, err
	}

	row, err := domain.Reconcile(vector, r.model.FeatureNames())
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues(variant, runOutcome(err)).Inc()
		return Result{}, err
	}

	predicted, err := r.model.Predict(row.Values)
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues(variant, "predict_error").Inc()
		return Result{}, err
	}

	result := Result{
		Vector:       vector,
		Row:          row,
		PredictedCFS: predicted,
		Key:          domain.FormatLogKey(keyInstant),
	}

	if record {
		rec := domain.PredictionRecord{Key: result.Key, Label: r.label, PredictedCFS: predicted}
		outcome, err := r.recorder.Record(ctx, rec)
		if err != nil {
			r.metrics.RunsTotal.WithLabelValues(variant, "record_error").Inc()
			return Result{}, err
		}
		result.RecordOutcome = outcome

		// Best-effort: the record is already durable, a publish failure only
		// delays downstream consumers.
		if r.publisher != nil {
			if err := r.publisher.Publish(ctx, rec); err != nil {
				r.logger.Warn("publish prediction failed", "key", rec.Key, "error", err)
			}
		}
	}

	r.metrics.RunsTotal.WithLabelValues(variant, "success").Inc()
	r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	r.metrics.PredictedCFS.Set(predicted)
	r.ready.Store(true)

	r.logger.Info("prediction run complete",
		"variant", variant,
		"key", result.Key,
		"predicted_cfs", predicted,
		"recorded", record,
	)
	return result, nil
}

func runOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrSchemaUnavailable):
		return "schema_unavailable"
	case errors.Is(err, domain.ErrNoReference):
		return "no_reference"
	default:
		return "error"
	}
}
