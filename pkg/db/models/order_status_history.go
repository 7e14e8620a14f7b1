package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// OrderStatusHistory is one append-only lifecycle transition of an order.
type OrderStatusHistory struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	OldStatus *enums.OrderStatus `gorm:"column:old_status;type:text" json:"old_status"`
	NewStatus enums.OrderStatus  `gorm:"column:new_status;type:text;not null" json:"new_status"`
	ChangedBy string             `gorm:"column:changed_by;not null" json:"changed_by"`
	Notes     *string            `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// OrderNote is an append-only operator note attached to an order.
type OrderNote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Message   string    `gorm:"column:message;not null" json:"message"`
	CreatedBy string    `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
