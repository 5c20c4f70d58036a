package workboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/db/models"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
	"github.com/angelmondragon/workboard-backend/pkg/metrics"
	"github.com/angelmondragon/workboard-backend/pkg/outbox"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

const (
	defaultUnassignedLimit = 50
	publishTimeout         = 5 * time.Second
	daysPerWeek            = 7
)

// ServiceParams groups dependencies for the work board service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Authorizer      authorizer
	Publisher       eventPublisher
	Outbox          outboxEmitter
	Metrics         *metrics.BoardMetrics
	Logger          *logger.Logger
	UnassignedLimit int
}

// Service exposes the work board reads and mutations. Every call is scoped to
// the principal's organization.
type Service interface {
	ListAssignments(ctx context.Context, principal auth.Principal, weekStart string) ([]board.AssignmentView, error)
	ListUnassignedJobs(ctx context.Context, principal auth.Principal) (board.UnassignedJobs, error)
	ListTechnicians(ctx context.Context, principal auth.Principal) ([]board.TechnicianView, error)

	CreateAssignment(ctx context.Context, principal auth.Principal, input CreateAssignmentInput) (board.AssignmentView, error)
	MoveAssignment(ctx context.Context, principal auth.Principal, input MoveAssignmentInput) (board.AssignmentView, error)
	RemoveAssignment(ctx context.Context, principal auth.Principal, id uuid.UUID) (board.RemovedAssignment, error)

	CreateTechnician(ctx context.Context, principal auth.Principal, input CreateTechnicianInput) (board.TechnicianView, error)
	UpdateTechnician(ctx context.Context, principal auth.Principal, input UpdateTechnicianInput) (board.TechnicianView, error)
	DeleteTechnician(ctx context.Context, principal auth.Principal, id uuid.UUID) (board.RemovedTechnician, error)
}

type service struct {
	repo            Repository
	tx              txRunner
	authz           authorizer
	publisher       eventPublisher
	outbox          outboxEmitter
	metrics         *metrics.BoardMetrics
	logg            *logger.Logger
	unassignedLimit int
}

// NewService builds a work board service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workboard repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Authorizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorizer is required")
	}
	if params.Publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event publisher is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	limit := params.UnassignedLimit
	if limit <= 0 {
		limit = defaultUnassignedLimit
	}
	return &service{
		repo:            params.Repo,
		tx:              params.Tx,
		authz:           params.Authorizer,
		publisher:       params.Publisher,
		outbox:          params.Outbox,
		metrics:         params.Metrics,
		logg:            params.Logger.Named("workboard"),
		unassignedLimit: limit,
	}, nil
}

// ListAssignments returns the hydrated assignments of the ISO week containing
// weekStart.
func (s *service) ListAssignments(ctx context.Context, principal auth.Principal, weekStart string) ([]board.AssignmentView, error) {
	if err := s.authorize(ctx, principal, enums.ActionRead); err != nil {
		return nil, err
	}
	start, err := types.ParseDate(weekStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weekStart").
			WithDetails(map[string]string{"weekStart": "must be a YYYY-MM-DD date"})
	}
	start = start.WeekStart()

	rows, err := s.repo.ListAssignmentsInRange(ctx, principal.OrganizationID, start, start.AddDays(daysPerWeek))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	views := make([]board.AssignmentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toAssignmentView(row))
	}
	return views, nil
}

// ListUnassignedJobs returns active jobs that no assignment references.
func (s *service) ListUnassignedJobs(ctx context.Context, principal auth.Principal) (board.UnassignedJobs, error) {
	if err := s.authorize(ctx, principal, enums.ActionRead); err != nil {
		return board.UnassignedJobs{}, err
	}
	records, err := s.repo.ListUnassignedServiceRecords(ctx, principal.OrganizationID, s.unassignedLimit)
	if err != nil {
		return board.UnassignedJobs{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned service records")
	}
	inspections, err := s.repo.ListUnassignedInspections(ctx, principal.OrganizationID, s.unassignedLimit)
	if err != nil {
		return board.UnassignedJobs{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned inspections")
	}

	out := board.UnassignedJobs{
		ServiceRecords: make([]board.ServiceRecordSummary, 0, len(records)),
		Inspections:    make([]board.InspectionSummary, 0, len(inspections)),
	}
	for _, sr := range records {
		out.ServiceRecords = append(out.ServiceRecords, toServiceRecordSummary(sr))
	}
	for _, in := range inspections {
		out.Inspections = append(out.Inspections, toInspectionSummary(in))
	}
	return out, nil
}

// ListTechnicians returns every technician of the organization in display order.
func (s *service) ListTechnicians(ctx context.Context, principal auth.Principal) ([]board.TechnicianView, error) {
	if err := s.authorize(ctx, principal, enums.ActionRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTechnicians(ctx, principal.OrganizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list technicians")
	}
	views := make([]board.TechnicianView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toTechnicianView(row))
	}
	return views, nil
}

// CreateAssignment places a job on a technician's day and syncs the
// denormalized schedule fields when the job is a service record.
func (s *service) CreateAssignment(ctx context.Context, principal auth.Principal, input CreateAssignmentInput) (view board.AssignmentView, err error) {
	defer s.track("create_assignment", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionCreate); err != nil {
		return board.AssignmentView{}, err
	}
	if err = input.validate(); err != nil {
		return board.AssignmentView{}, err
	}
	orgID := principal.OrganizationID
	kind, jobID := input.job()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		technician, err := loadTechnician(ctx, repo, orgID, input.TechnicianID)
		if err != nil {
			return err
		}
		if err := ensureJob(ctx, repo, orgID, kind, jobID); err != nil {
			return err
		}
		if _, err := repo.FindAssignmentForJob(ctx, orgID, kind, jobID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "job is already assigned")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing assignment")
		}

		row := &models.Assignment{
			OrganizationID: orgID,
			TechnicianID:   technician.ID,
			WorkDate:       input.Date,
			SortOrder:      input.SortOrder,
			Notes:          input.Notes,
		}
		if kind == enums.JobKindServiceRecord {
			row.ServiceRecordID = &jobID
		} else {
			row.InspectionID = &jobID
		}
		if err := repo.CreateAssignment(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		if kind == enums.JobKindServiceRecord {
			if err := repo.SetServiceRecordSchedule(ctx, orgID, jobID, technician.Name, input.Date); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync service record schedule")
			}
		}

		hydrated, err := repo.FindAssignment(ctx, orgID, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		view = toAssignmentView(*hydrated)
		return nil
	})
	if err != nil {
		return board.AssignmentView{}, err
	}

	s.publish(ctx, board.AssignmentCreated(view))
	return view, nil
}

// MoveAssignment rewrites technician, date and sort order in place. The
// assignment id never changes.
func (s *service) MoveAssignment(ctx context.Context, principal auth.Principal, input MoveAssignmentInput) (view board.AssignmentView, err error) {
	defer s.track("move_assignment", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionUpdate); err != nil {
		return board.AssignmentView{}, err
	}
	if err = input.validate(); err != nil {
		return board.AssignmentView{}, err
	}
	orgID := principal.OrganizationID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindAssignment(ctx, orgID, input.ID)
		if err != nil {
			return mapRepoErr(err, "assignment not found", "load assignment")
		}
		technician, err := loadTechnician(ctx, repo, orgID, input.TechnicianID)
		if err != nil {
			return err
		}
		if err := repo.UpdateAssignmentPlacement(ctx, orgID, existing.ID, technician.ID, input.Date, input.SortOrder); err != nil {
			return mapRepoErr(err, "assignment not found", "move assignment")
		}
		if existing.ServiceRecordID != nil {
			if err := repo.SetServiceRecordSchedule(ctx, orgID, *existing.ServiceRecordID, technician.Name, input.Date); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync service record schedule")
			}
		}

		hydrated, err := repo.FindAssignment(ctx, orgID, existing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		view = toAssignmentView(*hydrated)
		return nil
	})
	if err != nil {
		return board.AssignmentView{}, err
	}

	s.publish(ctx, board.AssignmentMoved(view))
	return view, nil
}

// RemoveAssignment deletes an assignment and clears the technician name on
// its service record. The service date is left as historical data.
func (s *service) RemoveAssignment(ctx context.Context, principal auth.Principal, id uuid.UUID) (removed board.RemovedAssignment, err error) {
	defer s.track("remove_assignment", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionDelete); err != nil {
		return board.RemovedAssignment{}, err
	}
	if id == uuid.Nil {
		return board.RemovedAssignment{}, pkgerrors.New(pkgerrors.CodeValidation, "assignment id is required")
	}
	orgID := principal.OrganizationID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindAssignment(ctx, orgID, id)
		if err != nil {
			return mapRepoErr(err, "assignment not found", "load assignment")
		}
		if existing.ServiceRecordID != nil {
			if err := repo.ClearServiceRecordTechName(ctx, orgID, []uuid.UUID{*existing.ServiceRecordID}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear service record technician")
			}
		}
		if err := repo.DeleteAssignment(ctx, orgID, existing.ID); err != nil {
			return mapRepoErr(err, "assignment not found", "delete assignment")
		}
		removed = board.RemovedAssignment{
			ID:              existing.ID,
			ServiceRecordID: existing.ServiceRecordID,
			InspectionID:    existing.InspectionID,
		}
		return nil
	})
	if err != nil {
		return board.RemovedAssignment{}, err
	}

	s.publish(ctx, board.AssignmentRemoved(orgID, removed))
	return removed, nil
}

// CreateTechnician adds a column to the board.
func (s *service) CreateTechnician(ctx context.Context, principal auth.Principal, input CreateTechnicianInput) (view board.TechnicianView, err error) {
	defer s.track("create_technician", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionCreate); err != nil {
		return board.TechnicianView{}, err
	}
	if err = input.normalize(); err != nil {
		return board.TechnicianView{}, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	row := &models.Technician{
		OrganizationID: principal.OrganizationID,
		Name:           input.Name,
		Color:          input.Color,
		IsActive:       active,
		SortOrder:      input.SortOrder,
		MemberID:       input.MemberID,
	}
	if err = s.repo.CreateTechnician(ctx, row); err != nil {
		return board.TechnicianView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create technician")
	}

	view = toTechnicianView(*row)
	s.publish(ctx, board.TechnicianCreated(view))
	return view, nil
}

// UpdateTechnician patches a technician. A rename is copied onto the service
// records the technician is currently assigned to. IsActive=false is the
// soft remove.
func (s *service) UpdateTechnician(ctx context.Context, principal auth.Principal, input UpdateTechnicianInput) (view board.TechnicianView, err error) {
	defer s.track("update_technician", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionUpdate); err != nil {
		return board.TechnicianView{}, err
	}
	updates, err := input.updates()
	if err != nil {
		return board.TechnicianView{}, err
	}
	orgID := principal.OrganizationID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := loadTechnician(ctx, repo, orgID, input.ID)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := repo.UpdateTechnician(ctx, orgID, current.ID, updates); err != nil {
				return mapRepoErr(err, "technician not found", "update technician")
			}
		}
		if name, ok := updates["name"].(string); ok && name != current.Name {
			if err := repo.RenameServiceRecordTech(ctx, orgID, current.ID, name); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync technician name")
			}
		}

		updated, err := loadTechnician(ctx, repo, orgID, current.ID)
		if err != nil {
			return err
		}
		view = toTechnicianView(*updated)
		return nil
	})
	if err != nil {
		return board.TechnicianView{}, err
	}

	s.publish(ctx, board.TechnicianUpdated(view))
	return view, nil
}

// DeleteTechnician hard deletes a technician with its assignments and leaves
// a tombstone in the outbox for external sync.
func (s *service) DeleteTechnician(ctx context.Context, principal auth.Principal, id uuid.UUID) (removed board.RemovedTechnician, err error) {
	defer s.track("delete_technician", time.Now(), &err)

	if err = s.authorize(ctx, principal, enums.ActionDelete); err != nil {
		return board.RemovedTechnician{}, err
	}
	if id == uuid.Nil {
		return board.RemovedTechnician{}, pkgerrors.New(pkgerrors.CodeValidation, "technician id is required")
	}
	orgID := principal.OrganizationID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		technician, err := loadTechnician(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		assignments, err := repo.ListAssignmentsByTechnician(ctx, orgID, technician.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list technician assignments")
		}
		assignmentIDs := make([]uuid.UUID, 0, len(assignments))
		serviceRecordIDs := make([]uuid.UUID, 0, len(assignments))
		for _, a := range assignments {
			assignmentIDs = append(assignmentIDs, a.ID)
			if a.ServiceRecordID != nil {
				serviceRecordIDs = append(serviceRecordIDs, *a.ServiceRecordID)
			}
		}

		if err := repo.ClearServiceRecordTechName(ctx, orgID, serviceRecordIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear service record technician")
		}
		if err := repo.DeleteAssignmentsByTechnician(ctx, orgID, technician.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete technician assignments")
		}
		if err := repo.DeleteTechnician(ctx, orgID, technician.ID); err != nil {
			return mapRepoErr(err, "technician not found", "delete technician")
		}

		tombstone := outbox.DomainEvent{
			OrganizationID: orgID,
			EventType:      enums.EventTechnicianDeleted,
			AggregateType:  enums.AggregateTechnician,
			AggregateID:    technician.ID,
			Actor: &outbox.ActorRef{
				UserID:         principal.UserID,
				OrganizationID: orgID,
				Role:           string(principal.Role),
			},
			Data: outbox.TechnicianDeleted{
				TechnicianID:  technician.ID,
				Name:          technician.Name,
				AssignmentIDs: assignmentIDs,
			},
		}
		if err := s.outbox.Emit(ctx, tx, tombstone); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write technician tombstone")
		}

		removed = board.RemovedTechnician{ID: technician.ID, AssignmentIDs: assignmentIDs}
		return nil
	})
	if err != nil {
		return board.RemovedTechnician{}, err
	}

	s.publish(ctx, board.TechnicianRemoved(orgID, removed))
	return removed, nil
}

func (s *service) authorize(ctx context.Context, principal auth.Principal, action enums.PermissionAction) error {
	if principal.OrganizationID == uuid.Nil || principal.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated principal required")
	}
	return s.authz.Authorize(ctx, principal, action)
}

// publish fans the event out after commit. The write is already durable, so
// a bus failure is logged and counted only.
func (s *service) publish(ctx context.Context, event board.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.metrics.IncPublishFailure(string(event.Type))
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type":      event.Type,
			"organization_id": event.OrganizationID.String(),
		})
		s.logg.Error(logCtx, "workboard event publish failed", err)
	}
}

func (s *service) track(op string, start time.Time, errp *error) {
	s.metrics.ObserveMutation(op, time.Since(start))
	if errp != nil && *errp != nil {
		s.metrics.IncMutationFailure(op, string(pkgerrors.CodeOf(*errp)))
	}
}

func loadTechnician(ctx context.Context, repo Repository, orgID, id uuid.UUID) (*models.Technician, error) {
	technician, err := repo.FindTechnician(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoErr(err, "technician not found", "load technician")
	}
	return technician, nil
}

func ensureJob(ctx context.Context, repo Repository, orgID uuid.UUID, kind enums.JobKind, id uuid.UUID) error {
	switch kind {
	case enums.JobKindServiceRecord:
		if _, err := repo.FindServiceRecord(ctx, orgID, id); err != nil {
			return mapRepoErr(err, "service record not found", "load service record")
		}
	case enums.JobKindInspection:
		if _, err := repo.FindInspection(ctx, orgID, id); err != nil {
			return mapRepoErr(err, "inspection not found", "load inspection")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown job kind")
	}
	return nil
}

func mapRepoErr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
