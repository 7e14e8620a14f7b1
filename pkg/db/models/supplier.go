package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a regional fulfillment partner responsible for delivery.
type Supplier struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string             `gorm:"column:name;not null" json:"name"`
	ContactPerson *string            `gorm:"column:contact_person" json:"contact_person,omitempty"`
	Email         *string            `gorm:"column:email" json:"email,omitempty"`
	Phone         *string            `gorm:"column:phone" json:"phone,omitempty"`
	Address       *string            `gorm:"column:address" json:"address,omitempty"`
	Region        string             `gorm:"column:region;not null" json:"region"`
	IsActive      bool               `gorm:"column:is_active;not null" json:"is_active"`
	Postcodes     []SupplierPostcode `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE" json:"postcodes,omitempty"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// SupplierPostcode maps a delivery postcode to the supplier serving it.
type SupplierPostcode struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID uuid.UUID `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	Postcode   string    `gorm:"column:postcode;not null" json:"postcode"`
	Address    *string   `gorm:"column:address" json:"address,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
