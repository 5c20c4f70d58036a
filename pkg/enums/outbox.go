package enums

// OutboxAggregateType names the entity a sync outbox row describes.
type OutboxAggregateType string

const (
	AggregateTechnician OutboxAggregateType = "technician"
)

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateTechnician
}

// OutboxEventType names what happened to the aggregate. External sync
// consumers only read tombstones today.
type OutboxEventType string

const (
	EventTechnicianDeleted OutboxEventType = "technician.deleted"
)

// IsValid reports whether the value matches a known outbox event type.
func (e OutboxEventType) IsValid() bool {
	return e == EventTechnicianDeleted
}
