package controllers

import (
	"net/http"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/suppliers"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

// NoticeSupplierLookupFailed asks the customer to re-enter the postcode.
const NoticeSupplierLookupFailed = "Lieferant konnte nicht ermittelt werden. Bitte geben Sie die Postleitzahl erneut ein."

// NoticeSupplierNotFound is shown when no supplier serves the postcode.
const NoticeSupplierNotFound = "Für diese Postleitzahl ist derzeit kein Lieferant verfügbar."

type supplierLookupResponse struct {
	Postcode string                `json:"postcode"`
	Supplier *suppliers.Assignment `json:"supplier"`
}

// SupplierLookup resolves the supplier for a postcode. Lookup failures degrade
// to a null supplier with a notice so the checkout form stays usable.
func SupplierLookup(resolver suppliers.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postcode := validators.QueryString(r, "postcode", 16)
		if postcode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "postcode is required"))
			return
		}

		assignment, err := resolver.Resolve(r.Context(), postcode)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Warn(logg.WithFields(r.Context(), map[string]any{"postcode": postcode, "error": err.Error()}), "supplier.lookup.degraded")
			}
			responses.WriteSuccessWithNotices(w, supplierLookupResponse{Postcode: postcode}, []string{NoticeSupplierLookupFailed})
			return
		}
		if assignment == nil {
			responses.WriteSuccessWithNotices(w, supplierLookupResponse{Postcode: postcode}, []string{NoticeSupplierNotFound})
			return
		}
		responses.WriteSuccess(w, supplierLookupResponse{Postcode: postcode, Supplier: assignment})
	}
}
