package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
)

// OutboxEvent is an append-only row read by external sync consumers.
// Technician deletions are recorded here as tombstones.
type OutboxEvent struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID                 `gorm:"column:organization_id;type:uuid;not null;index"`
	EventType      enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType  enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID    uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload        json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt    *time.Time                `gorm:"column:published_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All returns every model owned or projected by the work board, in
// dependency order, for AutoMigrate in tests and sqlite dev mode.
func All() []any {
	return []any{
		&Vehicle{},
		&ServiceRecord{},
		&Inspection{},
		&Technician{},
		&Assignment{},
		&OutboxEvent{},
	}
}
