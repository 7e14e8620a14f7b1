package orderstream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const subscriberBuffer = 64

// ErrBrokerClosed is returned once Close has been called.
var ErrBrokerClosed = errors.New("order stream closed")

// LocalBroker is an in-process broker for single-instance deployments and tests.
// A subscriber whose buffer is full misses the event; the publisher never waits.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*localSubscription]struct{}
	closed bool
	onDrop func(Event)
}

// LocalOption configures a LocalBroker.
type LocalOption func(*LocalBroker)

// WithDropHook is called once per subscriber that missed an event.
func WithDropHook(fn func(Event)) LocalOption {
	return func(b *LocalBroker) {
		b.onDrop = fn
	}
}

// NewLocalBroker returns an empty in-process broker.
func NewLocalBroker(opts ...LocalOption) *LocalBroker {
	b := &LocalBroker{subs: map[uuid.UUID]map[*localSubscription]struct{}{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *LocalBroker) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	targets := make([]*localSubscription, 0, len(b.subs[event.OrderID]))
	for sub := range b.subs[event.OrderID] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.deliver(event) && b.onDrop != nil {
			b.onDrop(event)
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(_ context.Context, orderID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	sub := &localSubscription{
		broker:  b,
		orderID: orderID,
		ch:      make(chan Event, subscriberBuffer),
		done:    make(chan struct{}),
	}
	if b.subs[orderID] == nil {
		b.subs[orderID] = map[*localSubscription]struct{}{}
	}
	b.subs[orderID][sub] = struct{}{}
	return sub, nil
}

// Close ends every open subscription.
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*localSubscription
	for _, set := range b.subs {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	b.subs = map[uuid.UUID]map[*localSubscription]struct{}{}
	b.mu.Unlock()

	var err error
	for _, sub := range subs {
		err = multierr.Append(err, sub.shutdown())
	}
	return err
}

func (b *LocalBroker) remove(sub *localSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sub.orderID]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.orderID)
	}
}

type localSubscription struct {
	broker  *LocalBroker
	orderID uuid.UUID
	ch      chan Event
	done    chan struct{}
	once    sync.Once
	// serializes deliveries so one publisher's events keep their order
	sendMu sync.Mutex
}

func (s *localSubscription) Events() <-chan Event {
	return s.ch
}

// deliver reports false only when the buffer was full.
func (s *localSubscription) deliver(event Event) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *localSubscription) Close() error {
	s.broker.remove(s)
	return s.shutdown()
}

func (s *localSubscription) shutdown() error {
	s.once.Do(func() {
		close(s.done)
		s.sendMu.Lock()
		close(s.ch)
		s.sendMu.Unlock()
	})
	return nil
}
