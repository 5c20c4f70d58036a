package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/db/models"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	return conn
}

func TestEmitWritesTombstoneEnvelope(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	orgID := uuid.New()
	techID := uuid.New()
	userID := uuid.New()
	assignmentID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			OrganizationID: orgID,
			EventType:      enums.EventTechnicianDeleted,
			AggregateType:  enums.AggregateTechnician,
			AggregateID:    techID,
			Actor:          &ActorRef{UserID: userID, OrganizationID: orgID, Role: "owner"},
			Data:           TechnicianDeleted{TechnicianID: techID, Name: "Alice", AssignmentIDs: []uuid.UUID{assignmentID}},
		})
	})
	require.NoError(t, err)

	rows, err := repo.Pending(context.Background(), orgID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, orgID, rows[0].OrganizationID)
	require.Equal(t, techID, rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, userID, env.Actor.UserID)

	var data TechnicianDeleted
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, []uuid.UUID{assignmentID}, data.AssignmentIDs)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	orgID := uuid.New()
	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			OrganizationID: orgID,
			EventType:      enums.EventTechnicianDeleted,
			AggregateType:  enums.AggregateTechnician,
			AggregateID:    uuid.New(),
		}))
		return fmt.Errorf("abort")
	})

	rows, err := repo.Pending(context.Background(), orgID, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEmitRequiresTransactionAndKnownTypes(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	require.ErrorIs(t, svc.Emit(context.Background(), nil, DomainEvent{}), ErrTxRequired)
	require.ErrorIs(t, svc.Emit(context.Background(), conn, DomainEvent{EventType: enums.EventTechnicianDeleted, AggregateType: enums.AggregateTechnician}), ErrOrgRequired)
	require.ErrorIs(t, svc.Emit(context.Background(), conn, DomainEvent{
		OrganizationID: uuid.New(),
		EventType:      "product.deleted",
		AggregateType:  enums.AggregateTechnician,
	}), ErrUnknownEventType)
}

func TestPendingIsScopedAndAcknowledged(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	orgA, orgB := uuid.New(), uuid.New()
	for _, org := range []uuid.UUID{orgA, orgA, orgB} {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				OrganizationID: org,
				EventType:      enums.EventTechnicianDeleted,
				AggregateType:  enums.AggregateTechnician,
				AggregateID:    uuid.New(),
			})
		}))
	}

	pendingA, err := repo.Pending(ctx, orgA, 0)
	require.NoError(t, err)
	require.Len(t, pendingA, 2)

	// Ids of another organization are ignored.
	pendingB, err := repo.Pending(ctx, orgB, 10)
	require.NoError(t, err)
	require.Len(t, pendingB, 1)
	ackAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	changed, err := repo.Acknowledge(ctx, orgA, []uuid.UUID{pendingA[0].ID, pendingB[0].ID}, ackAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)

	changed, err = repo.Acknowledge(ctx, orgA, []uuid.UUID{pendingA[0].ID}, ackAt.Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, changed, "acknowledging twice is a no-op")

	pendingA, err = repo.Pending(ctx, orgA, 10)
	require.NoError(t, err)
	require.Len(t, pendingA, 1)

	changed, err = repo.Acknowledge(ctx, orgA, nil, ackAt)
	require.NoError(t, err)
	require.Zero(t, changed)
}
