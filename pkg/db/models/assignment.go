package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// Assignment places exactly one job (service record or inspection) on one
// technician's column for one calendar day.
type Assignment struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID  uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	TechnicianID    uuid.UUID  `gorm:"column:technician_id;type:uuid;not null;index"`
	ServiceRecordID *uuid.UUID `gorm:"column:service_record_id;type:uuid;index;check:assignments_exactly_one_job,(service_record_id IS NULL) <> (inspection_id IS NULL)"`
	InspectionID    *uuid.UUID `gorm:"column:inspection_id;type:uuid;index"`
	WorkDate        types.Date `gorm:"column:work_date;type:date;not null"`
	SortOrder       int        `gorm:"column:sort_order;not null;default:0"`
	Notes           *string    `gorm:"column:notes;type:text"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Technician    *Technician    `gorm:"foreignKey:TechnicianID;constraint:OnDelete:CASCADE"`
	ServiceRecord *ServiceRecord `gorm:"foreignKey:ServiceRecordID"`
	Inspection    *Inspection    `gorm:"foreignKey:InspectionID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
