package bankaccounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

// Selector resolves the settlement account for a shop system.
type Selector interface {
	ForSystem(ctx context.Context, systemName string) (*models.BankAccount, error)
}

// Service exposes selection plus account administration.
type Service interface {
	Selector
	List(ctx context.Context, systemName string) ([]models.BankAccount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BankAccount, error)
	Create(ctx context.Context, input CreateInput) (*models.BankAccount, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.BankAccount, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	tx     txRunner
	policy string
	logg   *logger.Logger
}

// NewService constructs the bank account service.
func NewService(repo Repository, tx txRunner, policy string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bank account repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if policy == "" {
		policy = config.SelectionPolicyFirst
	}
	if policy != config.SelectionPolicyFirst && policy != config.SelectionPolicyRejectAmbiguous {
		return nil, fmt.Errorf("unknown bank account selection policy %q", policy)
	}
	return &service{repo: repo, tx: tx, policy: policy, logg: logg}, nil
}

func (s *service) ForSystem(ctx context.Context, systemName string) (*models.BankAccount, error) {
	systemName = strings.TrimSpace(systemName)
	if systemName == "" {
		return nil, nil
	}
	accounts, err := s.repo.List(ctx, systemName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank accounts")
	}
	account, err := Select(accounts, systemName, s.policy)
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.logg.Warn(s.logg.WithField(ctx, "system_name", systemName), "no active bank account")
	}
	return account, nil
}

func (s *service) List(ctx context.Context, systemName string) ([]models.BankAccount, error) {
	accounts, err := s.repo.List(ctx, strings.TrimSpace(systemName))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	return accounts, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BankAccount, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
	}
	return account, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.BankAccount, error) {
	account, err := input.toModel()
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, account); err != nil {
			return err
		}
		if account.IsActive {
			return repo.DeactivateSystem(ctx, account.SystemName, account.ID)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bank account")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"bank_account_id": account.ID.String(),
		"system_name":     account.SystemName,
		"iban":            account.IBAN,
	}), "bank account created")
	return account, nil
}

// SetActive toggles an account. Activation deactivates the other accounts of
// the same system in the same transaction so exactly one stays eligible.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.BankAccount, error) {
	var updated *models.BankAccount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
		}
		if active {
			if err := repo.DeactivateSystem(ctx, account.SystemName, account.ID); err != nil {
				return err
			}
		}
		if err := repo.SetActive(ctx, account.ID, active); err != nil {
			return err
		}
		account.IsActive = active
		updated = account
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bank account")
	}
	return updated, nil
}
