package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/db/models"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// envelopeVersion is stamped on events that do not pick their own.
const envelopeVersion = 1

var (
	ErrTxRequired       = errors.New("outbox writes need the caller's transaction")
	ErrOrgRequired      = errors.New("outbox event needs an organization")
	ErrUnknownEventType = errors.New("unknown outbox event or aggregate type")
)

// DomainEvent is a change that external sync has to hear about even if the
// realtime notification is lost.
type DomainEvent struct {
	OrganizationID uuid.UUID
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	AggregateID    uuid.UUID
	Actor          *ActorRef
	Data           any
	Version        int
	OccurredAt     time.Time
}

// Emitter writes domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg.Named("outbox"), now: time.Now}
}

// Emit stores event in tx. The row commits or rolls back with the change
// that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.OrganizationID == uuid.Nil {
		return ErrOrgRequired
	}
	if !event.EventType.IsValid() || !event.AggregateType.IsValid() {
		return fmt.Errorf("%w: %q/%q", ErrUnknownEventType, event.EventType, event.AggregateType)
	}

	envelope, err := s.seal(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}

	if err := s.repo.Insert(ctx, tx, models.OutboxEvent{
		OrganizationID: event.OrganizationID,
		EventType:      event.EventType,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		Payload:        json.RawMessage(body),
	}); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
	}), "outbox event queued")
	return nil
}

// seal wraps the event body in the versioned envelope consumers decode.
func (s *Service) seal(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s body: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	version := event.Version
	if version == 0 {
		version = envelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}
