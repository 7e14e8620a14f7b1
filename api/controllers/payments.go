package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/internal/payments"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

type paymentStartResponse struct {
	PaymentID   string `json:"payment_id"`
	Environment string `json:"environment"`
	RedirectURL string `json:"redirect_url"`
	Advisory    string `json:"advisory,omitempty"`
}

// PaymentStart initiates the hosted payment page for a card order. The form is
// not returned; the browser follows redirect_url to the single-use landing page.
func PaymentStart(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		result, err := svc.StartForOrder(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, paymentStartResponse{
			PaymentID:   result.Session.PaymentID,
			Environment: result.Session.Environment,
			RedirectURL: result.RedirectURL,
			Advisory:    result.Session.Advisory,
		})
	}
}

// PaymentLanding serves the stored redirect form exactly once. Revisits and
// unreadable handoffs are sent back to checkout.
func PaymentLanding(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		handoff, err := svc.ConsumeHandoff(r.Context(), orderNumber)
		if err != nil {
			http.Redirect(w, r, payments.RetryURL(orderNumber), http.StatusSeeOther)
			return
		}
		if handoff == nil {
			http.Redirect(w, r, "/checkout", http.StatusSeeOther)
			return
		}
		page, err := payments.RenderLanding(handoff)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment landing"))
			return
		}
		writeHTML(w, page)
	}
}

// PaymentCancel renders the cancellation view with a retry link.
func PaymentCancel(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := payments.RenderCancel(strings.TrimSpace(r.URL.Query().Get("order")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment cancel"))
			return
		}
		writeHTML(w, page)
	}
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
