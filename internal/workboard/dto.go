package workboard

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

const (
	maxTechnicianName = 100
	maxNotesLength    = 2000
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CreateAssignmentInput places a job on (TechnicianID, Date). Exactly one of
// ServiceRecordID and InspectionID must be set.
type CreateAssignmentInput struct {
	Date            types.Date
	TechnicianID    uuid.UUID
	ServiceRecordID *uuid.UUID
	InspectionID    *uuid.UUID
	Notes           *string
	SortOrder       int
}

func (in CreateAssignmentInput) validate() error {
	details := map[string]string{}
	if in.Date.IsZero() {
		details["date"] = "is required"
	}
	if in.TechnicianID == uuid.Nil {
		details["technicianId"] = "is required"
	}
	hasService := in.ServiceRecordID != nil && *in.ServiceRecordID != uuid.Nil
	hasInspection := in.InspectionID != nil && *in.InspectionID != uuid.Nil
	if hasService == hasInspection {
		details["job"] = "exactly one of serviceRecordId or inspectionId is required"
	}
	if in.Notes != nil && utf8.RuneCountInString(*in.Notes) > maxNotesLength {
		details["notes"] = "must be at most 2000 characters"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid assignment").WithDetails(details)
	}
	return nil
}

func (in CreateAssignmentInput) job() (enums.JobKind, uuid.UUID) {
	if in.ServiceRecordID != nil && *in.ServiceRecordID != uuid.Nil {
		return enums.JobKindServiceRecord, *in.ServiceRecordID
	}
	return enums.JobKindInspection, *in.InspectionID
}

// MoveAssignmentInput moves an existing assignment in place.
type MoveAssignmentInput struct {
	ID           uuid.UUID
	TechnicianID uuid.UUID
	Date         types.Date
	SortOrder    int
}

func (in MoveAssignmentInput) validate() error {
	details := map[string]string{}
	if in.ID == uuid.Nil {
		details["id"] = "is required"
	}
	if in.TechnicianID == uuid.Nil {
		details["technicianId"] = "is required"
	}
	if in.Date.IsZero() {
		details["date"] = "is required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid move").WithDetails(details)
	}
	return nil
}

// CreateTechnicianInput adds a board column. IsActive defaults to true.
type CreateTechnicianInput struct {
	Name      string
	Color     string
	IsActive  *bool
	SortOrder int
	MemberID  *uuid.UUID
}

func (in *CreateTechnicianInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	details := map[string]string{}
	if msg := validateName(in.Name); msg != "" {
		details["name"] = msg
	}
	if !colorRe.MatchString(in.Color) {
		details["color"] = "must be a #rrggbb hex color"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid technician").WithDetails(details)
	}
	return nil
}

// UpdateTechnicianInput patches a technician. Nil fields are left unchanged;
// MemberID distinguishes absent from explicit null.
type UpdateTechnicianInput struct {
	ID        uuid.UUID
	Name      *string
	Color     *string
	IsActive  *bool
	SortOrder *int
	MemberID  types.NullableUUID
}

// updates validates the patch and returns the column map to write.
func (in UpdateTechnicianInput) updates() (map[string]any, error) {
	details := map[string]string{}
	updates := map[string]any{}
	if in.ID == uuid.Nil {
		details["id"] = "is required"
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if msg := validateName(name); msg != "" {
			details["name"] = msg
		}
		updates["name"] = name
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		if !colorRe.MatchString(color) {
			details["color"] = "must be a #rrggbb hex color"
		}
		updates["color"] = color
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.SortOrder != nil {
		updates["sort_order"] = *in.SortOrder
	}
	if in.MemberID.Valid {
		if in.MemberID.Value == nil {
			updates["member_id"] = nil
		} else {
			updates["member_id"] = *in.MemberID.Value
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid technician").WithDetails(details)
	}
	return updates, nil
}

func validateName(name string) string {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "is required"
	}
	if n > maxTechnicianName {
		return "must be at most 100 characters"
	}
	return ""
}
