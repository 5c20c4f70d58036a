package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// ServiceRecord is owned by the service-record module. The work board reads
// it and writes only TechName and ServiceDate.
type ServiceRecord struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID                 `gorm:"column:organization_id;type:uuid;not null;index"`
	VehicleID      *uuid.UUID                `gorm:"column:vehicle_id;type:uuid"`
	Title          string                    `gorm:"column:title;type:text;not null"`
	Status         enums.ServiceRecordStatus `gorm:"column:status;type:text;not null"`
	TechName       *string                   `gorm:"column:tech_name;type:text"`
	ServiceDate    types.Date                `gorm:"column:service_date;type:date"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID"`
}

func (ServiceRecord) TableName() string {
	return "service_records"
}

// Inspection is owned by the inspection module and is read-only here.
type Inspection struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index"`
	VehicleID      *uuid.UUID             `gorm:"column:vehicle_id;type:uuid"`
	TemplateName   string                 `gorm:"column:template_name;type:text;not null"`
	Status         enums.InspectionStatus `gorm:"column:status;type:text;not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID"`
}

func (Inspection) TableName() string {
	return "inspections"
}

// Vehicle is the read-only summary shown on board cards.
type Vehicle struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	Year           *int      `gorm:"column:year"`
	Make           string    `gorm:"column:make;type:text"`
	Model          string    `gorm:"column:model;type:text"`
	LicensePlate   *string   `gorm:"column:license_plate;type:text"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
