package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the Kafka topic audit events are published to.
const DefaultTopic = "deedblock.audit"

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// OutboxPublisher moves committed outbox rows to Kafka. Rows are produced in
// insertion order and marked published one at a time, giving at-least-once
// delivery; consumers dedupe on the event ID inside the payload.
type OutboxPublisher struct {
	db        *sql.DB
	client    *kgo.Client
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option tunes an OutboxPublisher.
type Option func(*OutboxPublisher)

// WithPollInterval sets how often the outbox is polled for unpublished rows.
func WithPollInterval(d time.Duration) Option {
	return func(p *OutboxPublisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func NewOutboxPublisher(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *OutboxPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &OutboxPublisher{
		db:        db,
		client:    client,
		topic:     topic,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (p *OutboxPublisher) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled. Publish failures are
// logged and retried on the next tick.
func (p *OutboxPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.PublishPending(ctx); err != nil {
				p.logger.Error("publishing outbox batch failed", "error", err)
			}
		}
	}
}

type outboxEntry struct {
	id          uuid.UUID
	aggregateID string
	eventType   string
	payload     []byte
}

// PublishPending drains one batch of unpublished rows. Exported so tests and
// shutdown hooks can flush without waiting for a tick.
func (p *OutboxPublisher) PublishPending(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		p.batchSize)
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []outboxEntry
	for rows.Next() {
		var e outboxEntry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.eventType, &e.payload); err != nil {
			return fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox: %w", err)
	}

	for _, e := range entries {
		record := &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.aggregateID),
			Value: e.payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.eventType)},
			},
		}
		if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox entry %s: %w", e.id, err)
		}
		if _, err := p.db.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), e.id); err != nil {
			return fmt.Errorf("mark outbox entry %s published: %w", e.id, err)
		}
	}
	return nil
}
