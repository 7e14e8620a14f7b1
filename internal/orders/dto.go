package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// ListParams are the admin list inputs.
type ListParams struct {
	Status   string
	ShopType string
	Limit    int
	Cursor   string
}

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	ShopType      enums.ShopType      `json:"shop_type"`
	CustomerName  string              `json:"customer_name"`
	Postcode      string              `json:"postcode"`
	Liters        decimal.Decimal     `json:"liters"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	StatusLabel   string              `json:"status_label"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ListResult wraps one page of orders plus the next cursor.
type ListResult struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the back-office order view.
type OrderDetail struct {
	ID                          uuid.UUID           `json:"id"`
	OrderNumber                 string              `json:"order_number"`
	ShopType                    enums.ShopType      `json:"shop_type"`
	Amount                      decimal.Decimal     `json:"amount"`
	Currency                    enums.Currency      `json:"currency"`
	CustomerName                string              `json:"customer_name"`
	CustomerEmail               string              `json:"customer_email"`
	CustomerPhone               *string             `json:"customer_phone,omitempty"`
	DeliveryStreet              string              `json:"delivery_street"`
	DeliveryPostcode            string              `json:"delivery_postcode"`
	DeliveryCity                string              `json:"delivery_city"`
	Product                     string              `json:"product"`
	Liters                      decimal.Decimal     `json:"liters"`
	PricePerLiter               decimal.Decimal     `json:"price_per_liter"`
	PaymentMethod               enums.PaymentMethod `json:"payment_method"`
	PaymentID                   *string             `json:"payment_id,omitempty"`
	Status                      enums.OrderStatus   `json:"status"`
	StatusLabel                 string              `json:"status_label"`
	NextStatus                  *enums.OrderStatus  `json:"next_status,omitempty"`
	SupplierID                  *uuid.UUID          `json:"supplier_id,omitempty"`
	BankAccountID               *uuid.UUID          `json:"bank_account_id,omitempty"`
	CustomerLanguage            string              `json:"customer_language"`
	ShouldSendOrderConfirmation bool                `json:"should_send_order_confirmation"`
	ShouldSendInvoice           bool                `json:"should_send_invoice"`
	Invoices                    []InvoiceSummary    `json:"invoices"`
	CreatedAt                   time.Time           `json:"created_at"`
	UpdatedAt                   time.Time           `json:"updated_at"`
}

// InvoiceSummary lists an invoice issued for the order.
type InvoiceSummary struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toSummary(order models.Order) OrderSummary {
	return OrderSummary{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		ShopType:      order.ShopType,
		CustomerName:  order.CustomerName,
		Postcode:      order.DeliveryPostcode,
		Liters:        order.Liters,
		Amount:        order.Amount,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		StatusLabel:   order.Status.Label(),
		CreatedAt:     order.CreatedAt,
	}
}

func toDetail(order models.Order, invoices []models.Invoice) *OrderDetail {
	detail := &OrderDetail{
		ID:                          order.ID,
		OrderNumber:                 order.OrderNumber,
		ShopType:                    order.ShopType,
		Amount:                      order.Amount,
		Currency:                    order.Currency,
		CustomerName:                order.CustomerName,
		CustomerEmail:               order.CustomerEmail,
		CustomerPhone:               order.CustomerPhone,
		DeliveryStreet:              order.DeliveryStreet,
		DeliveryPostcode:            order.DeliveryPostcode,
		DeliveryCity:                order.DeliveryCity,
		Product:                     order.Product,
		Liters:                      order.Liters,
		PricePerLiter:               order.PricePerLiter,
		PaymentMethod:               order.PaymentMethod,
		PaymentID:                   order.PaymentID,
		Status:                      order.Status,
		StatusLabel:                 order.Status.Label(),
		SupplierID:                  order.SupplierID,
		BankAccountID:               order.BankAccountID,
		CustomerLanguage:            order.CustomerLanguage,
		ShouldSendOrderConfirmation: order.ShouldSendOrderConfirmation,
		ShouldSendInvoice:           order.ShouldSendInvoice,
		Invoices:                    make([]InvoiceSummary, 0, len(invoices)),
		CreatedAt:                   order.CreatedAt,
		UpdatedAt:                   order.UpdatedAt,
	}
	if next, ok := order.Status.Next(); ok {
		detail.NextStatus = &next
	}
	for _, inv := range invoices {
		detail.Invoices = append(detail.Invoices, InvoiceSummary{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			BankAccountID: inv.BankAccountID,
			CreatedAt:     inv.CreatedAt,
		})
	}
	return detail
}
