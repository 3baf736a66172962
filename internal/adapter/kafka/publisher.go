// Package kafka publishes prediction records for downstream trend consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/config"
	"github.com/couchcryptid/creek-flow-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces prediction events to a Kafka topic. Publishing is an
// optional side channel: the observation log write has already happened by
// the time Publish is called, so a broker outage never loses a prediction.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured prediction topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes one prediction record to the topic, keyed by its log
// key so replays of the same timestamp compact naturally.
func (p *Publisher) Publish(ctx context.Context, rec domain.PredictionRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PredictionRecord into a Kafka message.
func serializeToMessage(rec domain.PredictionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "label", Value: []byte(rec.Label)},
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
