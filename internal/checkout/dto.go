package checkout

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanton-energie/heizoel-backend/internal/suppliers"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

// SubmitInput is the customer-facing checkout form.
type SubmitInput struct {
	CustomerName     string              `json:"customer_name" validate:"required,max=200"`
	CustomerEmail    string              `json:"customer_email" validate:"required,email"`
	CustomerPhone    *string             `json:"customer_phone,omitempty" validate:"omitempty,max=50"`
	DeliveryStreet   string              `json:"delivery_street" validate:"required,max=255"`
	DeliveryPostcode string              `json:"delivery_postcode" validate:"required,max=16"`
	DeliveryCity     string              `json:"delivery_city" validate:"required,max=120"`
	Product          string              `json:"product" validate:"required,max=120"`
	Liters           decimal.Decimal     `json:"liters"`
	PricePerLiter    decimal.Decimal     `json:"price_per_liter"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method" validate:"required"`
}

func (in SubmitInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.CustomerName) == "" {
		details["customer_name"] = "is required"
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		details["customer_email"] = "is required"
	}
	if strings.TrimSpace(in.DeliveryStreet) == "" {
		details["delivery_street"] = "is required"
	}
	if strings.TrimSpace(in.DeliveryPostcode) == "" {
		details["delivery_postcode"] = "is required"
	}
	if strings.TrimSpace(in.DeliveryCity) == "" {
		details["delivery_city"] = "is required"
	}
	if strings.TrimSpace(in.Product) == "" {
		details["product"] = "is required"
	}
	if !in.Liters.IsPositive() {
		details["liters"] = "must be positive"
	}
	if !in.PricePerLiter.IsPositive() {
		details["price_per_liter"] = "must be positive"
	}
	if !in.PaymentMethod.IsValid() {
		details["payment_method"] = "is invalid"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

// Amount is the order total rounded to cents.
func (in SubmitInput) Amount() decimal.Decimal {
	return in.Liters.Mul(in.PricePerLiter).Round(2)
}

// Result is returned to the storefront after a successful submission.
type Result struct {
	OrderID                     uuid.UUID             `json:"order_id"`
	OrderNumber                 string                `json:"order_number"`
	Status                      enums.OrderStatus     `json:"status"`
	ShopType                    enums.ShopType        `json:"shop_type"`
	Amount                      decimal.Decimal       `json:"amount"`
	Currency                    enums.Currency        `json:"currency"`
	PaymentMethod               enums.PaymentMethod   `json:"payment_method"`
	Supplier                    *suppliers.Assignment `json:"supplier"`
	BankAccount                 *BankDetails          `json:"bank_account,omitempty"`
	CustomerLanguage            string                `json:"customer_language"`
	ShouldSendOrderConfirmation bool                  `json:"should_send_order_confirmation"`
	ShouldSendInvoice           bool                  `json:"should_send_invoice"`
	PaymentURL                  string                `json:"payment_url,omitempty"`
	Notices                     []string              `json:"notices,omitempty"`
}

// BankDetails are the transfer instructions shown after checkout.
type BankDetails struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	IBAN          string    `json:"iban"`
	BIC           *string   `json:"bic,omitempty"`
	AccountHolder *string   `json:"account_holder,omitempty"`
}
