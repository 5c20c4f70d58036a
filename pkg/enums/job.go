package enums

import "slices"

// JobKind distinguishes the two job entities a board assignment can point at.
type JobKind string

const (
	JobKindServiceRecord JobKind = "service_record"
	JobKindInspection    JobKind = "inspection"
)

func (k JobKind) IsValid() bool {
	return k == JobKindServiceRecord || k == JobKindInspection
}

// ServiceRecordStatus mirrors the service_records.status column owned by the
// service-record module.
type ServiceRecordStatus string

const (
	ServiceRecordStatusPending      ServiceRecordStatus = "pending"
	ServiceRecordStatusInProgress   ServiceRecordStatus = "in_progress"
	ServiceRecordStatusWaitingParts ServiceRecordStatus = "waiting_parts"
	ServiceRecordStatusCompleted    ServiceRecordStatus = "completed"
	ServiceRecordStatusInvoiced     ServiceRecordStatus = "invoiced"
	ServiceRecordStatusCancelled    ServiceRecordStatus = "cancelled"
)

var validServiceRecordStatuses = []ServiceRecordStatus{
	ServiceRecordStatusPending,
	ServiceRecordStatusInProgress,
	ServiceRecordStatusWaitingParts,
	ServiceRecordStatusCompleted,
	ServiceRecordStatusInvoiced,
	ServiceRecordStatusCancelled,
}

// ActiveServiceRecordStatuses are the statuses eligible for the unassigned pool.
var ActiveServiceRecordStatuses = []ServiceRecordStatus{
	ServiceRecordStatusPending,
	ServiceRecordStatusInProgress,
	ServiceRecordStatusWaitingParts,
}

func (s ServiceRecordStatus) IsValid() bool {
	return slices.Contains(validServiceRecordStatuses, s)
}

func (s ServiceRecordStatus) IsActive() bool {
	return slices.Contains(ActiveServiceRecordStatuses, s)
}

// InspectionStatus mirrors the inspections.status column.
type InspectionStatus string

const (
	InspectionStatusPending    InspectionStatus = "pending"
	InspectionStatusInProgress InspectionStatus = "in_progress"
	InspectionStatusCompleted  InspectionStatus = "completed"
	InspectionStatusCancelled  InspectionStatus = "cancelled"
)

var validInspectionStatuses = []InspectionStatus{
	InspectionStatusPending,
	InspectionStatusInProgress,
	InspectionStatusCompleted,
	InspectionStatusCancelled,
}

// ActiveInspectionStatuses are the statuses eligible for the unassigned pool.
var ActiveInspectionStatuses = []InspectionStatus{
	InspectionStatusPending,
	InspectionStatusInProgress,
}

func (s InspectionStatus) IsValid() bool {
	return slices.Contains(validInspectionStatuses, s)
}

func (s InspectionStatus) IsActive() bool {
	return slices.Contains(ActiveInspectionStatuses, s)
}
