package workboard

import (
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/db/models"
)

func toTechnicianView(t models.Technician) board.TechnicianView {
	return board.TechnicianView{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		Name:           t.Name,
		Color:          t.Color,
		IsActive:       t.IsActive,
		SortOrder:      t.SortOrder,
		MemberID:       t.MemberID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toVehicleSummary(v *models.Vehicle) *board.VehicleSummary {
	if v == nil {
		return nil
	}
	return &board.VehicleSummary{
		ID:           v.ID,
		Year:         v.Year,
		Make:         v.Make,
		Model:        v.Model,
		LicensePlate: v.LicensePlate,
	}
}

func toServiceRecordSummary(sr models.ServiceRecord) board.ServiceRecordSummary {
	return board.ServiceRecordSummary{
		ID:          sr.ID,
		Title:       sr.Title,
		Status:      sr.Status,
		TechName:    sr.TechName,
		ServiceDate: sr.ServiceDate,
		CreatedAt:   sr.CreatedAt,
		Vehicle:     toVehicleSummary(sr.Vehicle),
	}
}

func toInspectionSummary(in models.Inspection) board.InspectionSummary {
	return board.InspectionSummary{
		ID:           in.ID,
		TemplateName: in.TemplateName,
		Status:       in.Status,
		CreatedAt:    in.CreatedAt,
		Vehicle:      toVehicleSummary(in.Vehicle),
	}
}

func toAssignmentView(a models.Assignment) board.AssignmentView {
	view := board.AssignmentView{
		ID:              a.ID,
		OrganizationID:  a.OrganizationID,
		Date:            a.WorkDate,
		SortOrder:       a.SortOrder,
		Notes:           a.Notes,
		TechnicianID:    a.TechnicianID,
		ServiceRecordID: a.ServiceRecordID,
		InspectionID:    a.InspectionID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Technician != nil {
		view.Technician = &board.TechnicianSummary{
			ID:    a.Technician.ID,
			Name:  a.Technician.Name,
			Color: a.Technician.Color,
		}
	}
	if a.ServiceRecord != nil {
		summary := toServiceRecordSummary(*a.ServiceRecord)
		view.ServiceRecord = &summary
	}
	if a.Inspection != nil {
		summary := toInspectionSummary(*a.Inspection)
		view.Inspection = &summary
	}
	return view
}
