package enums

import "fmt"

// WorkboardEventType tags the mutation events fanned out to live clients.
type WorkboardEventType string

const (
	EventAssignmentCreated WorkboardEventType = "assignment_created"
	EventAssignmentMoved   WorkboardEventType = "assignment_moved"
	EventAssignmentRemoved WorkboardEventType = "assignment_removed"
	EventTechnicianCreated WorkboardEventType = "technician_created"
	EventTechnicianUpdated WorkboardEventType = "technician_updated"
	EventTechnicianRemoved WorkboardEventType = "technician_removed"
)

var validWorkboardEventTypes = []WorkboardEventType{
	EventAssignmentCreated,
	EventAssignmentMoved,
	EventAssignmentRemoved,
	EventTechnicianCreated,
	EventTechnicianUpdated,
	EventTechnicianRemoved,
}

func (e WorkboardEventType) IsValid() bool {
	for _, candidate := range validWorkboardEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseWorkboardEventType(value string) (WorkboardEventType, error) {
	for _, candidate := range validWorkboardEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workboard event type %q", value)
}

// PermissionAction is the verb half of a (action, subject) permission check.
type PermissionAction string

const (
	ActionRead   PermissionAction = "read"
	ActionCreate PermissionAction = "create"
	ActionUpdate PermissionAction = "update"
	ActionDelete PermissionAction = "delete"
)

// PermissionSubjectWorkboard is the only subject this service authorizes.
const PermissionSubjectWorkboard = "workboard"

func (a PermissionAction) IsValid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}
