package suppliers

import (
	"strings"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

// ListParams filters the admin supplier list.
type ListParams struct {
	Region     string
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult is one page of suppliers.
type ListResult struct {
	Items  []models.Supplier `json:"items"`
	Cursor string            `json:"cursor"`
}

// PostcodeInput attaches a postcode, optionally with a depot address.
type PostcodeInput struct {
	Postcode string  `json:"postcode" validate:"required,max=16"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

func (p PostcodeInput) toModel(supplierID uuid.UUID) models.SupplierPostcode {
	return models.SupplierPostcode{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Postcode:   strings.TrimSpace(p.Postcode),
		Address:    trimmed(p.Address),
	}
}

// CreateInput registers a supplier.
type CreateInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	ContactPerson *string         `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Email         *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address       *string         `json:"address,omitempty" validate:"omitempty,max=255"`
	Region        string          `json:"region" validate:"required,max=100"`
	IsActive      *bool           `json:"is_active,omitempty"`
	Postcodes     []PostcodeInput `json:"postcodes,omitempty" validate:"omitempty,dive"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(in.Region) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}
	for _, pc := range in.Postcodes {
		if strings.TrimSpace(pc.Postcode) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "postcode is required")
		}
	}
	return nil
}

// UpdateInput patches supplier fields; nil fields stay unchanged.
type UpdateInput struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Region        *string `json:"region,omitempty" validate:"omitempty,max=100"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

func (in UpdateInput) updates() (map[string]any, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Region != nil {
		region := strings.TrimSpace(*in.Region)
		if region == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "region cannot be empty")
		}
		updates["region"] = region
	}
	if in.ContactPerson != nil {
		updates["contact_person"] = trimmed(in.ContactPerson)
	}
	if in.Email != nil {
		updates["email"] = trimmed(in.Email)
	}
	if in.Phone != nil {
		updates["phone"] = trimmed(in.Phone)
	}
	if in.Address != nil {
		updates["address"] = trimmed(in.Address)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	return updates, nil
}
