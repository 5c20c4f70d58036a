package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/db/models"
)

const maxPendingBatch = 500

// Repository stores tombstones. Writes only happen inside the caller's
// transaction; reads and acknowledgements belong to the external sync.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.WithContext(ctx).Create(&event).Error
}

// Pending returns an organization's unacknowledged tombstones, oldest first.
// limit is clamped to (0, 500].
func (r *Repository) Pending(ctx context.Context, organizationID uuid.UUID, limit int) ([]models.OutboxEvent, error) {
	if limit <= 0 || limit > maxPendingBatch {
		limit = maxPendingBatch
	}
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND published_at IS NULL", organizationID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Acknowledge stamps published_at on the given tombstones of one
// organization. Rows already acknowledged keep their original timestamp.
// It returns how many rows changed.
func (r *Repository) Acknowledge(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("organization_id = ? AND id IN ? AND published_at IS NULL", organizationID, ids).
		Update("published_at", at.UTC())
	return res.RowsAffected, res.Error
}
