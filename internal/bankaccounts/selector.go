package bankaccounts

import (
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

// Select picks the active account for systemName. Zero matches yield nil; more
// than one match is resolved by policy (first found, or a conflict error).
func Select(accounts []models.BankAccount, systemName, policy string) (*models.BankAccount, error) {
	var match *models.BankAccount
	for i := range accounts {
		account := accounts[i]
		if !account.IsActive || account.SystemName != systemName {
			continue
		}
		if match == nil {
			match = &account
			if policy != config.SelectionPolicyRejectAmbiguous {
				break
			}
			continue
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "more than one active bank account for system").
			WithDetails(map[string]any{"system_name": systemName})
	}
	return match, nil
}
