package controllers

import (
	"net/http"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/checkout"
	"github.com/stanton-energie/heizoel-backend/internal/shops"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

// Checkout submits the order form for the resolved storefront session.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := shops.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout session unavailable"))
			return
		}

		var input checkout.SubmitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), session, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
