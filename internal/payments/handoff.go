package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Handoff is the single-use redirect payload for the landing page.
type Handoff struct {
	OrderNumber string    `json:"orderNumber"`
	FormHTML    string    `json:"formHtml"`
	Environment string    `json:"environment"`
	CreatedAt   time.Time `json:"createdAt"`
}

type handoffKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PaymentHandoffKey(orderNumber string) string
}

// HandoffStore keeps redirect payloads in Redis under payment_{orderNumber}.
type HandoffStore struct {
	kv  handoffKV
	ttl time.Duration
}

// NewHandoffStore wraps the Redis client.
func NewHandoffStore(kv handoffKV, ttl time.Duration) (*HandoffStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &HandoffStore{kv: kv, ttl: ttl}, nil
}

// Save writes the payload, replacing any earlier unconsumed attempt.
func (s *HandoffStore) Save(ctx context.Context, handoff Handoff) error {
	number := strings.TrimSpace(handoff.OrderNumber)
	if number == "" {
		return fmt.Errorf("order number required")
	}
	if handoff.CreatedAt.IsZero() {
		handoff.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(handoff)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.PaymentHandoffKey(number), payload, s.ttl)
}

// Discard drops an unconsumed payload so the landing page cannot serve it.
func (s *HandoffStore) Discard(ctx context.Context, orderNumber string) error {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return nil
	}
	return s.kv.Del(ctx, s.kv.PaymentHandoffKey(number))
}

// Consume atomically reads and deletes the payload. A second call returns nil.
func (s *HandoffStore) Consume(ctx context.Context, orderNumber string) (*Handoff, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return nil, nil
	}
	raw, err := s.kv.GetDel(ctx, s.kv.PaymentHandoffKey(number))
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var handoff Handoff
	if err := json.Unmarshal([]byte(raw), &handoff); err != nil {
		return nil, fmt.Errorf("decode payment handoff: %w", err)
	}
	if strings.TrimSpace(handoff.FormHTML) == "" {
		return nil, nil
	}
	return &handoff, nil
}
