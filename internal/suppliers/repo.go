package suppliers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/pagination"
)

// LookupRow is one candidate returned by the postcode lookup.
type LookupRow struct {
	SupplierID   uuid.UUID `gorm:"column:supplier_id"`
	SupplierName string    `gorm:"column:supplier_name"`
	Address      *string   `gorm:"column:address"`
}

type listQuery struct {
	Region     string
	ActiveOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

// Repository persists suppliers and their postcode coverage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LookupByPostcode(ctx context.Context, postcode string) ([]LookupRow, error)
	List(ctx context.Context, query listQuery) ([]models.Supplier, *pagination.Cursor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	Create(ctx context.Context, supplier *models.Supplier) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AddPostcodes(ctx context.Context, postcodes []models.SupplierPostcode) error
	ListPostcodes(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierPostcode, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the supplier repository to gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LookupByPostcode returns every active supplier serving postcode, lowest supplier id first.
func (r *repository) LookupByPostcode(ctx context.Context, postcode string) ([]LookupRow, error) {
	var rows []LookupRow
	err := r.db.WithContext(ctx).
		Table("supplier_postcodes AS sp").
		Select("s.id AS supplier_id, s.name AS supplier_name, COALESCE(NULLIF(sp.address, ''), s.address) AS address").
		Joins("JOIN suppliers s ON s.id = sp.supplier_id").
		Where("sp.postcode = ? AND s.is_active = ?", postcode, true).
		Order("s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, query listQuery) ([]models.Supplier, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)
	q := r.db.WithContext(ctx).Model(&models.Supplier{})
	if query.Region != "" {
		q = q.Where("region = ?", query.Region)
	}
	if query.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var suppliers []models.Supplier
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&suppliers).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(suppliers, limit, func(row models.Supplier) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).Preload("Postcodes").Where("id = ?", id).First(&supplier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Postcodes").Create(supplier).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AddPostcodes(ctx context.Context, postcodes []models.SupplierPostcode) error {
	if len(postcodes) == 0 {
		return nil
	}
	for i := range postcodes {
		if postcodes[i].ID == uuid.Nil {
			postcodes[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&postcodes).Error
}

func (r *repository) ListPostcodes(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierPostcode, error) {
	var postcodes []models.SupplierPostcode
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("postcode ASC").
		Find(&postcodes).Error
	return postcodes, err
}
