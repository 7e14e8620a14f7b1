package bankaccounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
)

// Repository persists settlement bank accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, systemName string) ([]models.BankAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BankAccount, error)
	Create(ctx context.Context, account *models.BankAccount) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DeactivateSystem(ctx context.Context, systemName string, except uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the bank account repository to gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// List returns accounts in creation order, optionally narrowed to one system.
func (r *repository) List(ctx context.Context, systemName string) ([]models.BankAccount, error) {
	q := r.db.WithContext(ctx).Model(&models.BankAccount{})
	if systemName != "" {
		q = q.Where("system_name = ?", systemName)
	}
	var accounts []models.BankAccount
	if err := q.Order("created_at ASC, id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, account *models.BankAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.BankAccount{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeactivateSystem(ctx context.Context, systemName string, except uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BankAccount{}).
		Where("system_name = ? AND id <> ? AND is_active = ?", systemName, except, true).
		Update("is_active", false).Error
}
