package orderstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

type pubSubClient interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	LiveChannel(orderID string) string
}

// RedisBroker relays events over Redis pub/sub so every API instance sees
// inserts committed by any other instance. Redis keeps per-channel publish order.
type RedisBroker struct {
	client pubSubClient
	logg   *logger.Logger

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisBroker wraps a Redis client.
func NewRedisBroker(client pubSubClient, logg *logger.Logger) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RedisBroker{client: client, logg: logg, subs: map[*redisSubscription]struct{}{}}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order stream event: %w", err)
	}
	return b.client.Publish(ctx, b.client.LiveChannel(event.OrderID.String()), payload)
}

func (b *RedisBroker) Subscribe(ctx context.Context, orderID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBrokerClosed
	}

	ps, err := b.client.Subscribe(ctx, b.client.LiveChannel(orderID.String()))
	if err != nil {
		return nil, err
	}
	sub := &redisSubscription{
		broker: b,
		ps:     ps,
		ch:     make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump(ctx, ps.Channel())
	return sub, nil
}

// Close unsubscribes every open subscription.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = map[*redisSubscription]struct{}{}
	b.mu.Unlock()

	var err error
	for _, sub := range subs {
		err = multierr.Append(err, sub.shutdown())
	}
	return err
}

type redisSubscription struct {
	broker *RedisBroker
	ps     *goredis.PubSub
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) Events() <-chan Event {
	return s.ch
}

func (s *redisSubscription) pump(ctx context.Context, messages <-chan *goredis.Message) {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := decodeEvent(msg.Payload)
			if err != nil {
				s.broker.logg.Warn(s.broker.logg.WithField(ctx, "channel", msg.Channel), "dropping malformed order stream event")
				continue
			}
			select {
			case s.ch <- event:
			case <-s.done:
				return
			default:
				s.broker.logg.Warn(s.broker.logg.WithField(ctx, "channel", msg.Channel), "order stream subscriber full, dropping event")
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()
	return s.shutdown()
}

func (s *redisSubscription) shutdown() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}

func decodeEvent(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, err
	}
	if event.OrderID == uuid.Nil {
		return Event{}, fmt.Errorf("order stream event without order id")
	}
	return event, nil
}
