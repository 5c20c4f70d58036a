package board

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
)

// Event is a board mutation notification. The payload fields that apply
// depend on Type; the rest are omitted on the wire.
type Event struct {
	Type           enums.WorkboardEventType `json:"type"`
	OrganizationID uuid.UUID                `json:"organizationId"`

	Assignment      *AssignmentView `json:"assignment,omitempty"`
	Technician      *TechnicianView `json:"technician,omitempty"`
	ID              *uuid.UUID      `json:"id,omitempty"`
	ServiceRecordID *uuid.UUID      `json:"serviceRecordId,omitempty"`
	InspectionID    *uuid.UUID      `json:"inspectionId,omitempty"`
	AssignmentIDs   []uuid.UUID     `json:"assignmentIds,omitempty"`
}

func AssignmentCreated(view AssignmentView) Event {
	return Event{Type: enums.EventAssignmentCreated, OrganizationID: view.OrganizationID, Assignment: &view}
}

func AssignmentMoved(view AssignmentView) Event {
	return Event{Type: enums.EventAssignmentMoved, OrganizationID: view.OrganizationID, Assignment: &view}
}

func AssignmentRemoved(orgID uuid.UUID, removed RemovedAssignment) Event {
	id := removed.ID
	return Event{
		Type:            enums.EventAssignmentRemoved,
		OrganizationID:  orgID,
		ID:              &id,
		ServiceRecordID: removed.ServiceRecordID,
		InspectionID:    removed.InspectionID,
	}
}

func TechnicianCreated(view TechnicianView) Event {
	return Event{Type: enums.EventTechnicianCreated, OrganizationID: view.OrganizationID, Technician: &view}
}

func TechnicianUpdated(view TechnicianView) Event {
	return Event{Type: enums.EventTechnicianUpdated, OrganizationID: view.OrganizationID, Technician: &view}
}

func TechnicianRemoved(orgID uuid.UUID, removed RemovedTechnician) Event {
	id := removed.ID
	ids := removed.AssignmentIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return Event{Type: enums.EventTechnicianRemoved, OrganizationID: orgID, ID: &id, AssignmentIDs: ids}
}

// Validate checks that the event carries the payload its type requires.
func (e Event) Validate() error {
	if e.OrganizationID == uuid.Nil {
		return fmt.Errorf("event %q missing organizationId", e.Type)
	}
	switch e.Type {
	case enums.EventAssignmentCreated, enums.EventAssignmentMoved:
		if e.Assignment == nil {
			return fmt.Errorf("event %q missing assignment", e.Type)
		}
	case enums.EventTechnicianCreated, enums.EventTechnicianUpdated:
		if e.Technician == nil {
			return fmt.Errorf("event %q missing technician", e.Type)
		}
	case enums.EventAssignmentRemoved, enums.EventTechnicianRemoved:
		if e.ID == nil {
			return fmt.Errorf("event %q missing id", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Envelope is the realtime frame: {"type":"workboard","data":<Event>}.
type Envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

const EnvelopeType = "workboard"

// Wrap places e inside a realtime envelope.
func Wrap(e Event) Envelope {
	return Envelope{Type: EnvelopeType, Data: e}
}
