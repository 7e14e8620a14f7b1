package enums

import "fmt"

// OrderStatus is the lifecycle state of a heating-oil order.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "Neu"
	OrderStatusPaid      OrderStatus = "Bezahlt"
	OrderStatusShipped   OrderStatus = "Versandt"
	OrderStatusCompleted OrderStatus = "Abgeschlossen"
)

// OrderStatusUnknownLabel is rendered for any stored value outside the lifecycle.
const OrderStatusUnknownLabel = "Unbekannt"

// canonical lifecycle order
var orderLifecycle = []OrderStatus{
	OrderStatusNew,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is part of the lifecycle.
func (s OrderStatus) IsValid() bool {
	return s.Rank() >= 0
}

// Rank returns the position in the lifecycle, or -1 for unknown values.
func (s OrderStatus) Rank() int {
	for i, candidate := range orderLifecycle {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Next returns the following lifecycle state. The terminal and unknown states have none.
func (s OrderStatus) Next() (OrderStatus, bool) {
	rank := s.Rank()
	if rank < 0 || rank == len(orderLifecycle)-1 {
		return "", false
	}
	return orderLifecycle[rank+1], true
}

// Label is the display text; unknown values render distinctly.
func (s OrderStatus) Label() string {
	if !s.IsValid() {
		return OrderStatusUnknownLabel
	}
	return string(s)
}

// OrderStatuses returns the lifecycle in canonical order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderLifecycle))
	copy(out, orderLifecycle)
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range orderLifecycle {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
