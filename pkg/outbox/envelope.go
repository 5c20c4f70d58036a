package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID         uuid.UUID `json:"userId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Role           string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// TechnicianDeleted is the tombstone body written when a technician row is
// hard deleted, so external sync can drop its copy.
type TechnicianDeleted struct {
	TechnicianID  uuid.UUID   `json:"technicianId"`
	Name          string      `json:"name"`
	AssignmentIDs []uuid.UUID `json:"assignmentIds"`
}
