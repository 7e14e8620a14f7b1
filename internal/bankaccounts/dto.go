package bankaccounts

import (
	"strings"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

// CreateInput registers a settlement account.
type CreateInput struct {
	SystemName    string  `json:"system_name" validate:"required,max=100"`
	BankName      string  `json:"bank_name" validate:"required,max=200"`
	IBAN          string  `json:"iban" validate:"required,min=15,max=34"`
	BIC           *string `json:"bic,omitempty" validate:"omitempty,min=8,max=11"`
	AccountHolder *string `json:"account_holder,omitempty" validate:"omitempty,max=200"`
	IsActive      bool    `json:"is_active"`
}

func (in CreateInput) toModel() (*models.BankAccount, error) {
	systemName := strings.TrimSpace(in.SystemName)
	bankName := strings.TrimSpace(in.BankName)
	iban := normalizeIBAN(in.IBAN)
	switch {
	case systemName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "system_name is required")
	case bankName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank_name is required")
	case len(iban) < 15 || len(iban) > 34:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "iban is invalid")
	}
	account := &models.BankAccount{
		ID:            uuid.New(),
		SystemName:    systemName,
		BankName:      bankName,
		IBAN:          iban,
		AccountHolder: optional(in.AccountHolder),
		IsActive:      in.IsActive,
	}
	if bic := optional(in.BIC); bic != nil {
		upper := strings.ToUpper(*bic)
		account.BIC = &upper
	}
	return account, nil
}

func normalizeIBAN(value string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
