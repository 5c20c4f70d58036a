package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Technician is a column on the work board. Deactivated technicians stay on
// file; sort_order only drives display order.
type Technician struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string     `gorm:"column:name;type:text;not null"`
	Color          string     `gorm:"column:color;type:text;not null"`
	IsActive       bool       `gorm:"column:is_active;not null"`
	SortOrder      int        `gorm:"column:sort_order;not null;default:0"`
	MemberID       *uuid.UUID `gorm:"column:member_id;type:uuid"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Technician) TableName() string {
	return "technicians"
}

func (t *Technician) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
