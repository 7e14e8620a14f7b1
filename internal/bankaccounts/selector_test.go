package bankaccounts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

func account(system string, active bool) models.BankAccount {
	return models.BankAccount{ID: uuid.New(), SystemName: system, BankName: "KBC", IBAN: "BE71096123456769", IsActive: active}
}

func TestSelectSingleActiveMatch(t *testing.T) {
	accounts := []models.BankAccount{
		account("StantonEnergie", true),
		account("MazoutVandaag", false),
		account("MazoutVandaag", true),
	}

	selected, err := Select(accounts, "MazoutVandaag", config.SelectionPolicyFirst)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, accounts[2].ID, selected.ID)
}

func TestSelectNoMatchReturnsNil(t *testing.T) {
	cases := map[string][]models.BankAccount{
		"empty":        nil,
		"inactive":     {account("MazoutVandaag", false)},
		"other system": {account("StantonEnergie", true)},
	}
	for name, accounts := range cases {
		selected, err := Select(accounts, "MazoutVandaag", config.SelectionPolicyFirst)
		require.NoError(t, err, name)
		assert.Nil(t, selected, name)
	}
}

func TestSelectAmbiguous(t *testing.T) {
	accounts := []models.BankAccount{account("MazoutVandaag", true), account("MazoutVandaag", true)}

	selected, err := Select(accounts, "MazoutVandaag", config.SelectionPolicyFirst)
	require.NoError(t, err)
	assert.Equal(t, accounts[0].ID, selected.ID)

	selected, err = Select(accounts, "MazoutVandaag", config.SelectionPolicyRejectAmbiguous)
	assert.Nil(t, selected)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestSelectDoesNotAliasInput(t *testing.T) {
	accounts := []models.BankAccount{account("MazoutVandaag", true)}

	selected, err := Select(accounts, "MazoutVandaag", config.SelectionPolicyFirst)
	require.NoError(t, err)
	selected.IBAN = "changed"
	assert.Equal(t, "BE71096123456769", accounts[0].IBAN)
}
