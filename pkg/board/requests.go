package board

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// CreateAssignmentRequest is the body of POST /assignments.
type CreateAssignmentRequest struct {
	Date            types.Date `json:"date" validate:"required"`
	TechnicianID    uuid.UUID  `json:"technicianId" validate:"required"`
	ServiceRecordID *uuid.UUID `json:"serviceRecordId,omitempty"`
	InspectionID    *uuid.UUID `json:"inspectionId,omitempty"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	SortOrder       int        `json:"sortOrder"`
}

// MoveAssignmentRequest is the body of POST /assignments/{id}/move.
type MoveAssignmentRequest struct {
	ID           uuid.UUID  `json:"-"`
	TechnicianID uuid.UUID  `json:"technicianId" validate:"required"`
	Date         types.Date `json:"date" validate:"required"`
	SortOrder    int        `json:"sortOrder"`
}

// CreateTechnicianRequest is the body of POST /technicians.
type CreateTechnicianRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Color     string     `json:"color" validate:"required,hexcolor"`
	IsActive  *bool      `json:"isActive,omitempty"`
	SortOrder int        `json:"sortOrder"`
	MemberID  *uuid.UUID `json:"memberId,omitempty"`
}

// UpdateTechnicianRequest is the body of PATCH /technicians/{id}. An explicit
// null memberId unlinks the member.
type UpdateTechnicianRequest struct {
	ID        uuid.UUID          `json:"-"`
	Name      *string            `json:"name,omitempty" validate:"omitempty,max=100"`
	Color     *string            `json:"color,omitempty" validate:"omitempty,hexcolor"`
	IsActive  *bool              `json:"isActive,omitempty"`
	SortOrder *int               `json:"sortOrder,omitempty"`
	MemberID  types.NullableUUID `json:"memberId"`
}

// MarshalJSON leaves memberId out unless it was explicitly set or cleared.
func (r UpdateTechnicianRequest) MarshalJSON() ([]byte, error) {
	type plain UpdateTechnicianRequest
	payload := struct {
		plain
		MemberID *types.NullableUUID `json:"memberId,omitempty"`
	}{plain: plain(r)}
	if r.MemberID.Valid {
		member := r.MemberID
		payload.MemberID = &member
	}
	return json.Marshal(payload)
}
