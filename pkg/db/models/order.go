package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// Order is a heating-oil order placed through checkout.
type Order struct {
	ID                          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber                 string              `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	ShopType                    enums.ShopType      `gorm:"column:shop_type;type:text;not null" json:"shop_type"`
	Amount                      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency                    enums.Currency      `gorm:"column:currency;type:text;not null;default:'EUR'" json:"currency"`
	CustomerName                string              `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerEmail               string              `gorm:"column:customer_email;not null" json:"customer_email"`
	CustomerPhone               *string             `gorm:"column:customer_phone" json:"customer_phone,omitempty"`
	DeliveryStreet              string              `gorm:"column:delivery_street;not null" json:"delivery_street"`
	DeliveryPostcode            string              `gorm:"column:delivery_postcode;not null" json:"delivery_postcode"`
	DeliveryCity                string              `gorm:"column:delivery_city;not null" json:"delivery_city"`
	Product                     string              `gorm:"column:product;not null" json:"product"`
	Liters                      decimal.Decimal     `gorm:"column:liters;type:numeric(12,2);not null" json:"liters"`
	PricePerLiter               decimal.Decimal     `gorm:"column:price_per_liter;type:numeric(12,4);not null" json:"price_per_liter"`
	PaymentMethod               enums.PaymentMethod `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	Status                      enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'Neu'" json:"status"`
	SupplierID                  *uuid.UUID          `gorm:"column:supplier_id;type:uuid" json:"supplier_id,omitempty"`
	BankAccountID               *uuid.UUID          `gorm:"column:bank_account_id;type:uuid" json:"bank_account_id,omitempty"`
	PaymentID                   *string             `gorm:"column:payment_id" json:"payment_id,omitempty"`
	CustomerLanguage            string              `gorm:"column:customer_language;not null" json:"customer_language"`
	ShouldSendOrderConfirmation bool                `gorm:"column:should_send_order_confirmation;not null" json:"should_send_order_confirmation"`
	ShouldSendInvoice           bool                `gorm:"column:should_send_invoice;not null" json:"should_send_invoice"`
	Referrer                    *string             `gorm:"column:referrer" json:"referrer,omitempty"`
	CreatedAt                   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
