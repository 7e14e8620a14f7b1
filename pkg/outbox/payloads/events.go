package payloads

import (
	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// OrderCreatedEvent announces a submitted checkout.
type OrderCreatedEvent struct {
	OrderID                     uuid.UUID           `json:"order_id"`
	OrderNumber                 string              `json:"order_number"`
	ShopType                    enums.ShopType      `json:"shop_type"`
	Amount                      string              `json:"amount"`
	Currency                    enums.Currency      `json:"currency"`
	PaymentMethod               enums.PaymentMethod `json:"payment_method"`
	SupplierID                  *uuid.UUID          `json:"supplier_id,omitempty"`
	BankAccountID               *uuid.UUID          `json:"bank_account_id,omitempty"`
	CustomerLanguage            string              `json:"customer_language"`
	ShouldSendOrderConfirmation bool                `json:"should_send_order_confirmation"`
	ShouldSendInvoice           bool                `json:"should_send_invoice"`
}

// OrderStatusChangedEvent mirrors one appended status history row.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	HistoryID   uuid.UUID          `json:"history_id"`
	OldStatus   *enums.OrderStatus `json:"old_status,omitempty"`
	NewStatus   enums.OrderStatus  `json:"new_status"`
	ChangedBy   string             `json:"changed_by"`
	Notes       *string            `json:"notes,omitempty"`
}

// OrderNoteAddedEvent mirrors one appended operator note.
type OrderNoteAddedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	NoteID    uuid.UUID `json:"note_id"`
	CreatedBy string    `json:"created_by"`
}

// PaymentInitiatedEvent records a hosted payment page session.
type PaymentInitiatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PaymentID   string    `json:"payment_id"`
	Environment string    `json:"environment"`
}

// InvoiceGeneratedEvent records an invoice number issued for an order.
type InvoiceGeneratedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ShopType      *enums.ShopType `json:"shop_type,omitempty"`
	BankAccountID *uuid.UUID      `json:"bank_account_id,omitempty"`
}
