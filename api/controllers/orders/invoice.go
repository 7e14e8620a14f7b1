package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/invoices"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

type invoiceRequest struct {
	ShopType      string `json:"shop_type"`
	BankAccountID string `json:"bank_account_id"`
}

// PrintInvoice generates an invoice and serves it as a page that prints itself.
// JSON clients (Accept: application/json) get the generated document instead.
func PrintInvoice(svc invoices.Service, printDelay time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeInvoiceRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if strings.Contains(r.Header.Get("Accept"), "application/json") {
			responses.WriteSuccessStatus(w, http.StatusCreated, result)
			return
		}
		if err := invoices.Deliver(r.Context(), invoices.NewPrintPageOpener(w, r), result, printDelay); err != nil {
			logg.Warn(logg.WithField(r.Context(), "invoice_number", result.InvoiceNumber), "invoice generated but not delivered")
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

func decodeInvoiceRequest(r *http.Request) (invoiceRequest, error) {
	var req invoiceRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if r.ContentLength == 0 {
			return req, nil
		}
		err := validators.DecodeJSONBody(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	req.ShopType = r.PostFormValue("shop_type")
	req.BankAccountID = r.PostFormValue("bank_account_id")
	return req, nil
}

func (req invoiceRequest) toInput(orderNumber string) (invoices.GenerateInput, error) {
	input := invoices.GenerateInput{OrderNumber: orderNumber}
	if raw := strings.TrimSpace(req.ShopType); raw != "" {
		shop, err := enums.ParseShopType(raw)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid shop type").WithDetails(map[string]any{"shop_type": raw})
		}
		input.ShopType = &shop
	}
	if raw := strings.TrimSpace(req.BankAccountID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid bank account id").WithDetails(map[string]any{"bank_account_id": raw})
		}
		input.BankAccountID = &id
	}
	return input, nil
}
