package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
)

type outcome string

const (
	outcomePublished outcome = "published"
	outcomeRetry     outcome = "retry"
	outcomeParked    outcome = "parked"
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher is the slice of *gcppubsub.Publisher the relay needs.
type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type RelayParams struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	Broker     interface{ Ping(context.Context) error }
	Store      outboxStore
	Registry   eventResolver
	Publishers func(topic string) topicPublisher
	Metrics    *metrics.RelayMetrics
}

// Relay moves committed outbox rows to Pub/Sub. Each cycle claims a batch
// under row locks, publishes every message before awaiting acks, and settles
// each row as published, retried or parked in the same transaction.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	broker      interface{ Ping(context.Context) error }
	store       outboxStore
	registry    eventResolver
	publishers  func(topic string) topicPublisher
	metrics     *metrics.RelayMetrics
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	case p.Publishers == nil:
		return nil, errors.New("publisher lookup is required")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		store:       p.Store,
		registry:    p.Registry,
		publishers:  p.Publishers,
		metrics:     p.Metrics,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		interval:    time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.interval <= 0 {
		r.interval = 500 * time.Millisecond
	}
	return r, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next claim; an empty one or a failed cycle waits, doubling the pause on
// consecutive failures up to idleCeiling.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.broker.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	pause := r.interval
	for {
		n, err := r.cycle(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logg.Error(ctx, "outbox relay cycle failed", err)
			pause = min(pause*2, idleCeiling)
		case n >= r.batchSize:
			pause = r.interval
			continue
		default:
			pause = r.interval
		}

		if err := wait(ctx, pause+rand.N(pause/4+1)); err != nil {
			return err
		}
	}
}

type delivery struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   publishResult
	err      error
}

func (r *Relay) cycle(ctx context.Context) (int, error) {
	started := time.Now()
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		if claimed == 0 {
			return nil
		}

		pending := r.dispatch(ctx, events)
		for i := range pending {
			if err := r.settle(ctx, tx, &pending[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		r.metrics.ObserveBatch(time.Since(started))
	}
	return claimed, err
}

// dispatch resolves every row and hands all messages to their publishers
// before any ack is awaited, so the client can batch them.
func (r *Relay) dispatch(ctx context.Context, events []models.OutboxEvent) []delivery {
	out := make([]delivery, len(events))
	for i, event := range events {
		d := &out[i]
		d.event = event
		d.resolved, d.err = r.registry.Resolve(event)
		if d.err != nil {
			continue
		}
		pub := r.publishers(d.resolved.Descriptor.Topic)
		if pub == nil {
			d.err = registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", d.resolved.Descriptor.Topic))
			continue
		}
		d.result = pub.Publish(ctx, message(event, d.resolved))
		if d.result == nil {
			d.err = registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", d.resolved.Descriptor.Topic))
		}
	}

	for i := range out {
		d := &out[i]
		if d.err != nil || d.result == nil {
			continue
		}
		ackCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		_, d.err = d.result.Get(ackCtx)
		cancel()
	}
	return out
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, d *delivery) error {
	o := r.classify(d)
	logCtx := r.logg.WithFields(ctx, r.fields(d, o))

	var err error
	switch o {
	case outcomePublished:
		err = r.store.MarkPublishedTx(tx, d.event.ID)
		r.logg.Info(logCtx, "order event published")
	case outcomeRetry:
		err = r.store.MarkFailedTx(tx, d.event.ID, d.err)
		r.logg.Warn(r.logg.WithField(logCtx, "error", d.err.Error()), "order event publish failed, will retry")
	case outcomeParked:
		err = r.store.MarkTerminalTx(tx, d.event.ID, d.err, r.maxAttempts)
		r.logg.Warn(r.logg.WithField(logCtx, "error", d.err.Error()), "order event parked")
	}
	if err != nil {
		return fmt.Errorf("settle outbox row %s as %s: %w", d.event.ID, o, err)
	}
	r.metrics.IncEvent(string(d.event.EventType), string(o))
	return nil
}

func (r *Relay) classify(d *delivery) outcome {
	if d.err == nil {
		return outcomePublished
	}
	var permanent registry.NonRetryableError
	if errors.As(d.err, &permanent) {
		return outcomeParked
	}
	if d.event.AttemptCount+1 >= r.maxAttempts {
		d.err = fmt.Errorf("giving up after %d attempts: %w", d.event.AttemptCount+1, d.err)
		return outcomeParked
	}
	return outcomeRetry
}

func (r *Relay) fields(d *delivery, o outcome) map[string]any {
	fields := map[string]any{
		"outbox_id":    d.event.ID.String(),
		"event_type":   d.event.EventType,
		"order_id":     d.event.AggregateID.String(),
		"attempt":      d.event.AttemptCount + 1,
		"outcome":      string(o),
		"max_attempts": r.maxAttempts,
	}
	if d.resolved != nil {
		fields["topic"] = d.resolved.Descriptor.Topic
		fields["event_id"] = d.resolved.Envelope.EventID
	}
	return fields
}

// message carries the stored envelope as-is; attributes let subscribers
// filter without decoding the body.
func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
		},
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
