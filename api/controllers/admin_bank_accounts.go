package controllers

import (
	"net/http"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/bankaccounts"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

func AdminBankAccountList(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.List(r.Context(), validators.QueryString(r, "system_name", 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accounts)
	}
}

func AdminBankAccountCreate(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input bankaccounts.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

type activationRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminBankAccountSetActive toggles an account; activating one deactivates the
// other accounts of the same system.
func AdminBankAccountSetActive(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req activationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.SetActive(r.Context(), id, *req.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}
