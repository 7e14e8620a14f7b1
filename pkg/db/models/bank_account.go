package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is a settlement account printed on invoices for one shop system.
type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SystemName    string    `gorm:"column:system_name;not null" json:"system_name"`
	BankName      string    `gorm:"column:bank_name;not null" json:"bank_name"`
	IBAN          string    `gorm:"column:iban;not null" json:"iban"`
	BIC           *string   `gorm:"column:bic" json:"bic,omitempty"`
	AccountHolder *string   `gorm:"column:account_holder" json:"account_holder,omitempty"`
	IsActive      bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
