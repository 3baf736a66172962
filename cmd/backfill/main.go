// Command backfill runs one historical prediction for a chosen reference
// instant and prints the assembled features and the estimate. With -record
// the result is also upserted into the observation log, keyed by the
// reference timestamp.
//
// Usage:
//
//	go run ./cmd/backfill -at 2024-01-08T12:00:00Z [-record]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/adapter/model"
	"github.com/couchcryptid/creek-flow-service/internal/adapter/sqlite"
	"github.com/couchcryptid/creek-flow-service/internal/adapter/usgs"
	"github.com/couchcryptid/creek-flow-service/internal/config"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
	"github.com/couchcryptid/creek-flow-service/internal/pipeline"
)

func main() {
	at := flag.String("at", "", "reference instant, RFC3339 (e.g. 2024-01-08T12:00:00Z)")
	record := flag.Bool("record", false, "upsert the prediction into the observation log")
	flag.Parse()

	if *at == "" {
		flag.Usage()
		os.Exit(1)
	}

	reference, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -at value %q: %v\n", *at, err)
		os.Exit(1)
	}

	if code := run(reference, *record); code != 0 {
		os.Exit(code)
	}
}

func run(reference time.Time, record bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetrics()

	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load model: %v\n", err)
		return 1
	}

	recorder, err := sqlite.NewRecorder(cfg.LogDBPath, metrics, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open observation log: %v\n", err)
		return 1
	}
	defer recorder.Close()

	client := usgs.NewClient(cfg.USGSTimeout, metrics, logger)
	reader := usgs.NewCachedReader(client, cfg.USGSCacheSize, metrics)
	assembler := pipeline.NewAssembler(reader, cfg.Gauges, metrics, logger)
	runner := pipeline.NewRunner(assembler, m, recorder, nil, cfg.PredictionLabel, metrics, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := runner.RunHistorical(ctx, reference, record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prediction run failed: %v\n", err)
		return 1
	}

	fmt.Printf("Reference: %s\n\n", result.Key)
	for _, name := range result.Row.Names {
		reading := result.Vector[name]
		if reading.Valid {
			fmt.Printf("  %-24s %10.2f CFS  (recorded at %s)\n", name, reading.CFS, reading.DisplayTime())
		} else {
			fmt.Printf("  %-24s %10s\n", name, "N/A")
		}
	}

	fmt.Printf("\nPredicted Sugar Creek flow: %.2f CFS\n", result.PredictedCFS)
	if result.RecordOutcome != "" {
		fmt.Printf("Observation log: %s\n", result.RecordOutcome)
	}
	return 0
}
