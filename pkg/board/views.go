// Package board holds the work board wire types shared by the API, the bus
// and the client engine.
package board

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// TechnicianView is a board column.
type TechnicianView struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Name           string     `json:"name"`
	Color          string     `json:"color"`
	IsActive       bool       `json:"isActive"`
	SortOrder      int        `json:"sortOrder"`
	MemberID       *uuid.UUID `json:"memberId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TechnicianSummary is the technician slice embedded in an assignment card.
type TechnicianSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

type VehicleSummary struct {
	ID           uuid.UUID `json:"id"`
	Year         *int      `json:"year,omitempty"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	LicensePlate *string   `json:"licensePlate,omitempty"`
}

type ServiceRecordSummary struct {
	ID          uuid.UUID                 `json:"id"`
	Title       string                    `json:"title"`
	Status      enums.ServiceRecordStatus `json:"status"`
	TechName    *string                   `json:"techName,omitempty"`
	ServiceDate types.Date                `json:"serviceDate"`
	CreatedAt   time.Time                 `json:"createdAt"`
	Vehicle     *VehicleSummary           `json:"vehicle,omitempty"`
}

type InspectionSummary struct {
	ID           uuid.UUID              `json:"id"`
	TemplateName string                 `json:"templateName"`
	Status       enums.InspectionStatus `json:"status"`
	CreatedAt    time.Time              `json:"createdAt"`
	Vehicle      *VehicleSummary        `json:"vehicle,omitempty"`
}

// AssignmentView is a hydrated board card: the assignment plus the
// technician and job summaries it renders with.
type AssignmentView struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organizationId"`
	Date            types.Date `json:"date"`
	SortOrder       int        `json:"sortOrder"`
	Notes           *string    `json:"notes,omitempty"`
	TechnicianID    uuid.UUID  `json:"technicianId"`
	ServiceRecordID *uuid.UUID `json:"serviceRecordId,omitempty"`
	InspectionID    *uuid.UUID `json:"inspectionId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	Technician    *TechnicianSummary    `json:"technician,omitempty"`
	ServiceRecord *ServiceRecordSummary `json:"serviceRecord,omitempty"`
	Inspection    *InspectionSummary    `json:"inspection,omitempty"`
}

// JobKind reports which job reference the assignment carries.
func (a AssignmentView) JobKind() enums.JobKind {
	if a.InspectionID != nil {
		return enums.JobKindInspection
	}
	return enums.JobKindServiceRecord
}

// UnassignedJobs is the pool of active jobs not placed on the board.
type UnassignedJobs struct {
	ServiceRecords []ServiceRecordSummary `json:"serviceRecords"`
	Inspections    []InspectionSummary    `json:"inspections"`
}

// RemovedAssignment identifies a deleted assignment and the job it freed.
type RemovedAssignment struct {
	ID              uuid.UUID  `json:"id"`
	ServiceRecordID *uuid.UUID `json:"serviceRecordId,omitempty"`
	InspectionID    *uuid.UUID `json:"inspectionId,omitempty"`
}

// RemovedTechnician identifies a deleted technician and the assignments
// deleted with it.
type RemovedTechnician struct {
	ID            uuid.UUID   `json:"id"`
	AssignmentIDs []uuid.UUID `json:"assignmentIds"`
}
