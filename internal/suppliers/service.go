package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/pagination"
)

// AddressUnavailable is shown when neither the postcode row nor the supplier carries an address.
const AddressUnavailable = "Adresse nicht verfügbar"

// Assignment is the supplier chosen for a delivery postcode.
type Assignment struct {
	SupplierID   uuid.UUID `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	Address      string    `json:"address"`
}

// Resolver maps a delivery postcode to a supplier. A nil assignment means no supplier serves the postcode.
type Resolver interface {
	Resolve(ctx context.Context, postcode string) (*Assignment, error)
}

// Service exposes resolution plus supplier administration.
type Service interface {
	Resolver
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	Create(ctx context.Context, input CreateInput) (*models.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Supplier, error)
	AddPostcodes(ctx context.Context, id uuid.UUID, input []PostcodeInput) ([]models.SupplierPostcode, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	tx      txRunner
	policy  string
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// ServiceParams wires the supplier service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Policy  string
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
}

// NewService constructs the supplier service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	policy := params.Policy
	if policy == "" {
		policy = config.SelectionPolicyFirst
	}
	if policy != config.SelectionPolicyFirst && policy != config.SelectionPolicyRejectAmbiguous {
		return nil, fmt.Errorf("unknown supplier selection policy %q", policy)
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		policy:  policy,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (s *service) Resolve(ctx context.Context, postcode string) (*Assignment, error) {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postcode is required")
	}
	ctx = s.logg.WithField(ctx, "postcode", postcode)

	rows, err := s.repo.LookupByPostcode(ctx, postcode)
	if err != nil {
		s.metrics.IncSupplierLookup("failed")
		s.logg.Error(ctx, "supplier lookup failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supplier lookup failed")
	}

	row, err := selectRow(rows, s.policy)
	if err != nil {
		s.metrics.IncSupplierLookup("ambiguous")
		s.logg.Warn(s.logg.WithField(ctx, "candidates", len(rows)), "ambiguous supplier lookup")
		return nil, err
	}
	if row == nil {
		s.metrics.IncSupplierLookup("unmatched")
		return nil, nil
	}

	s.metrics.IncSupplierLookup("matched")
	return toAssignment(*row), nil
}

func selectRow(rows []LookupRow, policy string) (*LookupRow, error) {
	switch {
	case len(rows) == 0:
		return nil, nil
	case len(rows) > 1 && policy == config.SelectionPolicyRejectAmbiguous:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "postcode matches more than one supplier").
			WithDetails(map[string]any{"candidates": len(rows)})
	}
	return &rows[0], nil
}

func toAssignment(row LookupRow) *Assignment {
	address := AddressUnavailable
	if row.Address != nil && strings.TrimSpace(*row.Address) != "" {
		address = strings.TrimSpace(*row.Address)
	}
	return &Assignment{
		SupplierID:   row.SupplierID,
		SupplierName: row.SupplierName,
		Address:      address,
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{
		Region:     strings.TrimSpace(params.Region),
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Supplier, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	supplier := &models.Supplier{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(input.Name),
		ContactPerson: trimmed(input.ContactPerson),
		Email:         trimmed(input.Email),
		Phone:         trimmed(input.Phone),
		Address:       trimmed(input.Address),
		Region:        strings.TrimSpace(input.Region),
		IsActive:      true,
	}
	if input.IsActive != nil {
		supplier.IsActive = *input.IsActive
	}

	postcodes := make([]models.SupplierPostcode, 0, len(input.Postcodes))
	for _, pc := range input.Postcodes {
		postcodes = append(postcodes, pc.toModel(supplier.ID))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, supplier); err != nil {
			return err
		}
		return repo.AddPostcodes(ctx, postcodes)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "postcode already assigned to supplier")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	supplier.Postcodes = postcodes

	s.logg.Info(s.logg.WithField(ctx, "supplier_id", supplier.ID.String()), "supplier created")
	return supplier, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Supplier, error) {
	updates, err := input.updates()
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) AddPostcodes(ctx context.Context, id uuid.UUID, input []PostcodeInput) ([]models.SupplierPostcode, error) {
	if len(input) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one postcode is required")
	}
	postcodes := make([]models.SupplierPostcode, 0, len(input))
	for _, pc := range input {
		if strings.TrimSpace(pc.Postcode) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "postcode is required")
		}
		postcodes = append(postcodes, pc.toModel(id))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if supplier == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return repo.AddPostcodes(ctx, postcodes)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "postcode already assigned to supplier")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add supplier postcodes")
	}
	return postcodes, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
