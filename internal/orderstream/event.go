// Package orderstream fans out committed history and note inserts to every
// open viewer of the same order.
package orderstream

import (
	"context"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
)

// Kind names the table an event was inserted into.
type Kind string

const (
	KindHistory Kind = "history"
	KindNote    Kind = "note"
)

// Event is one committed insert for an order.
type Event struct {
	Kind    Kind                       `json:"kind"`
	OrderID uuid.UUID                  `json:"order_id"`
	Origin  string                     `json:"origin,omitempty"`
	History *models.OrderStatusHistory `json:"history,omitempty"`
	Note    *models.OrderNote          `json:"note,omitempty"`
}

// Broker publishes events and opens per-order subscriptions.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, orderID uuid.UUID) (Subscription, error)
	Close() error
}

// Subscription delivers events for one order in publish order until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}
