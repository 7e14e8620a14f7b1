package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// Invoice records a document number issued by the invoice function for an order.
type Invoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	InvoiceNumber string          `gorm:"column:invoice_number;not null" json:"invoice_number"`
	ShopType      *enums.ShopType `gorm:"column:shop_type;type:text" json:"shop_type,omitempty"`
	BankAccountID *uuid.UUID      `gorm:"column:bank_account_id;type:uuid" json:"bank_account_id,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
