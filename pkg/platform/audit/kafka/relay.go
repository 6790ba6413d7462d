// Package kafka relays audit outbox rows to a Kafka topic. Rows are marked
// published only after the broker acknowledges, so the retry loop can safely
// reprocess anything left pending.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/google/uuid"

	audit "votedeck/pkg/platform/audit"
)

// Outbox is the slice of the audit postgres store the relay needs.
type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]audit.PendingRow, error)
	MarkPublished(ctx context.Context, id uuid.UUID, now time.Time) error
}

type Relay struct {
	client    *kgo.Client
	outbox    Outbox
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func NewRelay(brokers []string, topic string, outbox Outbox, opts ...Option) (*Relay, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	r := &Relay{
		client:    client,
		outbox:    outbox,
		topic:     topic,
		interval:  5 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (r *Relay) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(r.client)
	_, err := adm.CreateTopic(ctx, 1, -1, nil, r.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", r.topic, err)
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("audit relay cycle failed", "error", err)
			}
		}
	}
}

// RunOnce publishes one bounded batch of pending rows. It stops at the first
// failure; unmarked rows are retried next cycle.
func (r *Relay) RunOnce(ctx context.Context) error {
	pending, err := r.outbox.ListPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}

	for _, row := range pending {
		record := &kgo.Record{
			Key:   []byte(row.Action),
			Value: row.Payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("publish outbox row %s: %w", row.ID, err)
		}
		if err := r.outbox.MarkPublished(ctx, row.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
	}
	return nil
}

func (r *Relay) Close() {
	r.client.Close()
}
