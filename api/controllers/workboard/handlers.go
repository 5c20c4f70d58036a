// Package workboard exposes the work board service over HTTP.
package workboard

import (
	"net/http"

	"github.com/angelmondragon/workboard-backend/api/middleware"
	"github.com/angelmondragon/workboard-backend/api/responses"
	"github.com/angelmondragon/workboard-backend/api/validators"
	internalworkboard "github.com/angelmondragon/workboard-backend/internal/workboard"
	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// ListAssignments returns the assignments of the week containing weekStart.
func ListAssignments(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		weekStart, err := validators.RequireQuery(r, "weekStart")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views, err := svc.ListAssignments(r.Context(), principal, weekStart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// ListUnassignedJobs returns the active jobs not placed on the board.
func ListUnassignedJobs(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		jobs, err := svc.ListUnassignedJobs(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobs)
	}
}

func ListTechnicians(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		techs, err := svc.ListTechnicians(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, techs)
	}
}

func CreateAssignment(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		var req board.CreateAssignmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.CreateAssignment(r.Context(), principal, internalworkboard.CreateAssignmentInput{
			Date:            req.Date,
			TechnicianID:    req.TechnicianID,
			ServiceRecordID: req.ServiceRecordID,
			InspectionID:    req.InspectionID,
			Notes:           req.Notes,
			SortOrder:       req.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// MoveAssignment updates technician, date and sort order in place.
func MoveAssignment(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req board.MoveAssignmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.MoveAssignment(r.Context(), principal, internalworkboard.MoveAssignmentInput{
			ID:           id,
			TechnicianID: req.TechnicianID,
			Date:         req.Date,
			SortOrder:    req.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RemoveAssignment(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		removed, err := svc.RemoveAssignment(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, removed)
	}
}

func CreateTechnician(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		var req board.CreateTechnicianRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.CreateTechnician(r.Context(), principal, internalworkboard.CreateTechnicianInput{
			Name:      req.Name,
			Color:     req.Color,
			IsActive:  req.IsActive,
			SortOrder: req.SortOrder,
			MemberID:  req.MemberID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// UpdateTechnician applies a partial update. An explicit null memberId
// unlinks the member.
func UpdateTechnician(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "technicianId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req board.UpdateTechnicianRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateTechnician(r.Context(), principal, internalworkboard.UpdateTechnicianInput{
			ID:        id,
			Name:      req.Name,
			Color:     req.Color,
			IsActive:  req.IsActive,
			SortOrder: req.SortOrder,
			MemberID:  req.MemberID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteTechnician removes a technician together with its assignments.
func DeleteTechnician(svc internalworkboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, svc, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "technicianId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		removed, err := svc.DeleteTechnician(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, removed)
	}
}

func requirePrincipal(w http.ResponseWriter, r *http.Request, svc internalworkboard.Service, logg *logger.Logger) (auth.Principal, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "workboard service unavailable"))
		return auth.Principal{}, false
	}
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Principal{}, false
	}
	return principal, true
}
