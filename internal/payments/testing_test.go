package payments

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/nexi"
)

type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.failSet != nil {
		return m.failSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	default:
		return errors.New("unsupported value")
	}
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	delete(m.values, key)
	return value, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryKV) PaymentHandoffKey(orderNumber string) string {
	return "hz:payment_" + orderNumber
}

// commitFailingTx runs the work in a real transaction, then rolls it back as
// if the commit had failed.
type commitFailingTx struct {
	conn *gorm.DB
	err  error
}

func (c commitFailingTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		return c.err
	})
}

type failingGateway struct {
	*nexi.Client
	err error
}

func (g failingGateway) BuildHostedPaymentForm(nexi.HostedPaymentRequest) (*nexi.HostedPaymentForm, error) {
	return nil, g.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
}
