package workboard

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/db/models"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/outbox"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// Repository defines persistence for technicians, assignments and the job
// columns the board is allowed to touch. Every lookup is organization scoped.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListTechnicians(ctx context.Context, orgID uuid.UUID) ([]models.Technician, error)
	FindTechnician(ctx context.Context, orgID, id uuid.UUID) (*models.Technician, error)
	CreateTechnician(ctx context.Context, technician *models.Technician) error
	UpdateTechnician(ctx context.Context, orgID, id uuid.UUID, updates map[string]any) error
	DeleteTechnician(ctx context.Context, orgID, id uuid.UUID) error

	FindServiceRecord(ctx context.Context, orgID, id uuid.UUID) (*models.ServiceRecord, error)
	FindInspection(ctx context.Context, orgID, id uuid.UUID) (*models.Inspection, error)
	SetServiceRecordSchedule(ctx context.Context, orgID, id uuid.UUID, techName string, date types.Date) error
	ClearServiceRecordTechName(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error
	RenameServiceRecordTech(ctx context.Context, orgID, technicianID uuid.UUID, techName string) error

	ListAssignmentsInRange(ctx context.Context, orgID uuid.UUID, from, to types.Date) ([]models.Assignment, error)
	ListAssignmentsByTechnician(ctx context.Context, orgID, technicianID uuid.UUID) ([]models.Assignment, error)
	FindAssignment(ctx context.Context, orgID, id uuid.UUID) (*models.Assignment, error)
	FindAssignmentForJob(ctx context.Context, orgID uuid.UUID, kind enums.JobKind, jobID uuid.UUID) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	UpdateAssignmentPlacement(ctx context.Context, orgID, id, technicianID uuid.UUID, date types.Date, sortOrder int) error
	DeleteAssignment(ctx context.Context, orgID, id uuid.UUID) error
	DeleteAssignmentsByTechnician(ctx context.Context, orgID, technicianID uuid.UUID) error

	ListUnassignedServiceRecords(ctx context.Context, orgID uuid.UUID, limit int) ([]models.ServiceRecord, error)
	ListUnassignedInspections(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Inspection, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type authorizer interface {
	Authorize(ctx context.Context, principal auth.Principal, action enums.PermissionAction) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event board.Event) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
