package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
)

// Repository is the insert-only ledger of status changes and notes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	InsertNote(ctx context.Context, note *models.OrderNote) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the audit repository to gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) InsertNote(ctx context.Context, note *models.OrderNote) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(note).Error
}

// ListHistory returns entries newest first.
func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

// ListNotes returns notes oldest first.
func (r *repository) ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error
	return notes, err
}
