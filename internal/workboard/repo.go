package workboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/workboard-backend/pkg/db/models"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

const (
	unassignedServiceRecordsClause = "NOT EXISTS (SELECT 1 FROM assignments a WHERE a.service_record_id = service_records.id)"
	unassignedInspectionsClause    = "NOT EXISTS (SELECT 1 FROM assignments a WHERE a.inspection_id = inspections.id)"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a work board repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListTechnicians(ctx context.Context, orgID uuid.UUID) ([]models.Technician, error) {
	var rows []models.Technician
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindTechnician(ctx context.Context, orgID, id uuid.UUID) (*models.Technician, error) {
	var row models.Technician
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateTechnician(ctx context.Context, technician *models.Technician) error {
	return r.db.WithContext(ctx).Create(technician).Error
}

func (r *repository) UpdateTechnician(ctx context.Context, orgID, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Technician{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteTechnician(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Delete(&models.Technician{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindServiceRecord(ctx context.Context, orgID, id uuid.UUID) (*models.ServiceRecord, error) {
	var row models.ServiceRecord
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindInspection(ctx context.Context, orgID, id uuid.UUID) (*models.Inspection, error) {
	var row models.Inspection
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SetServiceRecordSchedule overwrites the denormalized technician name and
// service date on a service record.
func (r *repository) SetServiceRecordSchedule(ctx context.Context, orgID, id uuid.UUID, techName string, date types.Date) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceRecord{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"tech_name":    techName,
			"service_date": date,
		}).Error
}

func (r *repository) ClearServiceRecordTechName(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ServiceRecord{}).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Update("tech_name", gorm.Expr("NULL")).Error
}

// RenameServiceRecordTech rewrites tech_name on every service record the
// technician is currently assigned to.
func (r *repository) RenameServiceRecordTech(ctx context.Context, orgID, technicianID uuid.UUID, techName string) error {
	assigned := r.db.
		Model(&models.Assignment{}).
		Select("service_record_id").
		Where("organization_id = ? AND technician_id = ? AND service_record_id IS NOT NULL", orgID, technicianID)
	return r.db.WithContext(ctx).
		Model(&models.ServiceRecord{}).
		Where("organization_id = ? AND id IN (?)", orgID, assigned).
		Update("tech_name", techName).Error
}

func (r *repository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Technician").
		Preload("ServiceRecord.Vehicle").
		Preload("Inspection.Vehicle")
}

// ListAssignmentsInRange returns hydrated assignments with from <= date < to.
func (r *repository) ListAssignmentsInRange(ctx context.Context, orgID uuid.UUID, from, to types.Date) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.hydrated(ctx).
		Where("organization_id = ? AND work_date >= ? AND work_date < ?", orgID, from, to).
		Order("work_date ASC").
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListAssignmentsByTechnician(ctx context.Context, orgID, technicianID uuid.UUID) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND technician_id = ?", orgID, technicianID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAssignment(ctx context.Context, orgID, id uuid.UUID) (*models.Assignment, error) {
	var row models.Assignment
	err := r.hydrated(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindAssignmentForJob(ctx context.Context, orgID uuid.UUID, kind enums.JobKind, jobID uuid.UUID) (*models.Assignment, error) {
	column, err := jobColumn(kind)
	if err != nil {
		return nil, err
	}
	var row models.Assignment
	err = r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where(column+" = ?", jobID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(assignment).Error
}

func (r *repository) UpdateAssignmentPlacement(ctx context.Context, orgID, id, technicianID uuid.UUID, date types.Date, sortOrder int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"technician_id": technicianID,
			"work_date":     date,
			"sort_order":    sortOrder,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteAssignment(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Delete(&models.Assignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteAssignmentsByTechnician(ctx context.Context, orgID, technicianID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND technician_id = ?", orgID, technicianID).
		Delete(&models.Assignment{}).Error
}

// ListUnassignedServiceRecords anti-joins active service records against
// assignments, oldest first.
func (r *repository) ListUnassignedServiceRecords(ctx context.Context, orgID uuid.UUID, limit int) ([]models.ServiceRecord, error) {
	statuses := make([]string, 0, len(enums.ActiveServiceRecordStatuses))
	for _, s := range enums.ActiveServiceRecordStatuses {
		statuses = append(statuses, string(s))
	}
	var rows []models.ServiceRecord
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("organization_id = ? AND status IN ?", orgID, statuses).
		Where(unassignedServiceRecordsClause).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListUnassignedInspections anti-joins active inspections against
// assignments, oldest first.
func (r *repository) ListUnassignedInspections(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Inspection, error) {
	statuses := make([]string, 0, len(enums.ActiveInspectionStatuses))
	for _, s := range enums.ActiveInspectionStatuses {
		statuses = append(statuses, string(s))
	}
	var rows []models.Inspection
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("organization_id = ? AND status IN ?", orgID, statuses).
		Where(unassignedInspectionsClause).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func jobColumn(kind enums.JobKind) (string, error) {
	switch kind {
	case enums.JobKindServiceRecord:
		return "service_record_id", nil
	case enums.JobKindInspection:
		return "inspection_id", nil
	default:
		return "", fmt.Errorf("unknown job kind %q", kind)
	}
}
