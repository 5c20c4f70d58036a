package boardstate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

type stubClient struct {
	createFn func(context.Context, board.CreateAssignmentRequest) (board.AssignmentView, error)
	moveFn   func(context.Context, board.MoveAssignmentRequest) (board.AssignmentView, error)
	removeFn func(context.Context, uuid.UUID) error
	calls    atomic.Int32
}

func (c *stubClient) CreateAssignment(ctx context.Context, req board.CreateAssignmentRequest) (board.AssignmentView, error) {
	c.calls.Add(1)
	return c.createFn(ctx, req)
}

func (c *stubClient) MoveAssignment(ctx context.Context, req board.MoveAssignmentRequest) (board.AssignmentView, error) {
	c.calls.Add(1)
	return c.moveFn(ctx, req)
}

func (c *stubClient) RemoveAssignment(ctx context.Context, id uuid.UUID) error {
	c.calls.Add(1)
	return c.removeFn(ctx, id)
}

type stubLoader struct {
	techs       []board.TechnicianView
	assignments []board.AssignmentView
	jobs        board.UnassignedJobs
	weeks       []types.Date
	mu          sync.Mutex
	loads       atomic.Int32
}

func (l *stubLoader) ListAssignments(_ context.Context, week types.Date) ([]board.AssignmentView, error) {
	l.mu.Lock()
	l.weeks = append(l.weeks, week)
	l.mu.Unlock()
	return l.assignments, nil
}

func (l *stubLoader) ListUnassignedJobs(context.Context) (board.UnassignedJobs, error) {
	return l.jobs, nil
}

func (l *stubLoader) ListTechnicians(context.Context) ([]board.TechnicianView, error) {
	l.loads.Add(1)
	return l.techs, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Error(message string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fixture struct {
	orgID    uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
	store    *Store
	client   *stubClient
	notifier *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orgID:    uuid.New(),
		alice:    uuid.New(),
		bob:      uuid.New(),
		client:   &stubClient{},
		notifier: &recordingNotifier{},
	}
	s := New(f.orgID)
	s = SetWeek(s, types.MustParseDate("2026-01-12"))
	s = SetTechnicians(s, []board.TechnicianView{
		{ID: f.alice, OrganizationID: f.orgID, Name: "Alice", Color: "#3b82f6"},
		{ID: f.bob, OrganizationID: f.orgID, Name: "Bob", Color: "#ef4444"},
	})
	f.store = NewStore(s)
	engine, err := NewEngine(EngineParams{Store: f.store, Client: f.client, Notifier: f.notifier})
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) seedAssignment(jobID uuid.UUID) board.AssignmentView {
	a := serviceRecordAssignment(f.orgID, f.alice, jobID, "2026-01-15")
	f.store.Dispatch(func(s State) State { return AddAssignment(s, a) })
	return a
}

func await(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed without a result")
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(EngineParams{Client: &stubClient{}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NewEngine(EngineParams{Store: NewStore(New(uuid.New()))})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDropOnSameCellIsNoop(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssignment(uuid.New())
	before := f.store.Snapshot()

	o := await(t, f.engine.Drop(context.Background(), Intent{
		Kind:         IntentMove,
		AssignmentID: a.ID,
		TechnicianID: a.TechnicianID,
		Date:         a.Date,
	}))

	assert.True(t, o.Skipped)
	assert.NoError(t, o.Err)
	assert.Zero(t, f.client.calls.Load())
	assert.Equal(t, before, f.store.Snapshot())
}

func TestDropUnknownAssignment(t *testing.T) {
	f := newFixture(t)
	o := await(t, f.engine.Drop(context.Background(), Intent{Kind: IntentMove, AssignmentID: uuid.New(), TechnicianID: f.bob}))
	assert.True(t, pkgerrors.IsCode(o.Err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.client.calls.Load())
}

func TestMoveAppliesOptimisticallyThenServerCopy(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssignment(uuid.New())
	target := types.MustParseDate("2026-01-16")

	release := make(chan struct{})
	f.client.moveFn = func(_ context.Context, req board.MoveAssignmentRequest) (board.AssignmentView, error) {
		<-release
		view := a
		view.TechnicianID = req.TechnicianID
		view.Date = req.Date
		view.Technician = &board.TechnicianSummary{ID: f.bob, Name: "Bob", Color: "#ef4444"}
		return view, nil
	}

	ch := f.engine.Drop(context.Background(), Intent{Kind: IntentMove, AssignmentID: a.ID, TechnicianID: f.bob, Date: target})

	optimistic, ok := f.store.Snapshot().Assignment(a.ID)
	require.True(t, ok)
	assert.Equal(t, f.bob, optimistic.TechnicianID)
	assert.Equal(t, target, optimistic.Date)

	close(release)
	o := await(t, ch)
	require.NoError(t, o.Err)
	require.NotNil(t, o.Assignment)

	final, _ := f.store.Snapshot().Assignment(a.ID)
	require.NotNil(t, final.Technician)
	assert.Equal(t, "Bob", final.Technician.Name)
	assert.Zero(t, f.notifier.count())
}

func TestMoveFailureRestoresPlacement(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssignment(uuid.New())
	f.client.moveFn = func(context.Context, board.MoveAssignmentRequest) (board.AssignmentView, error) {
		return board.AssignmentView{}, pkgerrors.New(pkgerrors.CodeInternal, "boom")
	}

	o := await(t, f.engine.Drop(context.Background(), Intent{
		Kind:         IntentMove,
		AssignmentID: a.ID,
		TechnicianID: f.bob,
		Date:         types.MustParseDate("2026-01-17"),
	}))
	require.Error(t, o.Err)

	restored, ok := f.store.Snapshot().Assignment(a.ID)
	require.True(t, ok)
	assert.Equal(t, a.TechnicianID, restored.TechnicianID)
	assert.Equal(t, a.Date, restored.Date)
	assert.Equal(t, 1, f.notifier.count())
}

func TestPlaceSuccessAddsAssignment(t *testing.T) {
	f := newFixture(t)
	jobID := uuid.New()
	f.store.Dispatch(func(s State) State {
		return AddUnassignedServiceRecord(s, board.ServiceRecordSummary{ID: jobID, Title: "Oil", Status: enums.ServiceRecordStatusPending})
	})

	var got board.CreateAssignmentRequest
	f.client.createFn = func(_ context.Context, req board.CreateAssignmentRequest) (board.AssignmentView, error) {
		got = req
		return serviceRecordAssignment(f.orgID, req.TechnicianID, *req.ServiceRecordID, req.Date.String()), nil
	}

	ch := f.engine.Drop(context.Background(), Intent{
		Kind:         IntentPlace,
		JobKind:      enums.JobKindServiceRecord,
		JobID:        jobID,
		TechnicianID: f.alice,
		Date:         types.MustParseDate("2026-01-15"),
	})
	o := await(t, ch)
	require.NoError(t, o.Err)

	require.NotNil(t, got.ServiceRecordID)
	assert.Equal(t, jobID, *got.ServiceRecordID)
	assert.Nil(t, got.InspectionID)

	s := f.store.Snapshot()
	assert.Empty(t, s.UnassignedServiceRecords)
	require.Len(t, s.Assignments, 1)
	assert.Equal(t, f.alice, s.Assignments[0].TechnicianID)
}

func TestPlaceFailureReturnsJobToPool(t *testing.T) {
	f := newFixture(t)
	inspection := board.InspectionSummary{ID: uuid.New(), TemplateName: "Safety", Status: enums.InspectionStatusPending}
	f.store.Dispatch(func(s State) State { return AddUnassignedInspection(s, inspection) })

	release := make(chan struct{})
	f.client.createFn = func(context.Context, board.CreateAssignmentRequest) (board.AssignmentView, error) {
		<-release
		return board.AssignmentView{}, pkgerrors.New(pkgerrors.CodeConflict, "already assigned")
	}

	ch := f.engine.Drop(context.Background(), Intent{
		Kind:         IntentPlace,
		JobKind:      enums.JobKindInspection,
		JobID:        inspection.ID,
		TechnicianID: f.bob,
		Date:         types.MustParseDate("2026-01-14"),
	})
	assert.Empty(t, f.store.Snapshot().UnassignedInspections, "job leaves the pool immediately")

	close(release)
	o := await(t, ch)
	assert.True(t, pkgerrors.IsCode(o.Err, pkgerrors.CodeConflict))

	s := f.store.Snapshot()
	require.Len(t, s.UnassignedInspections, 1)
	assert.Equal(t, inspection, s.UnassignedInspections[0])
	assert.Empty(t, s.Assignments)
	assert.Equal(t, 1, f.notifier.count())
}

func TestPlaceRejectsUnknownJobKind(t *testing.T) {
	f := newFixture(t)
	o := await(t, f.engine.Drop(context.Background(), Intent{Kind: IntentPlace, JobKind: "truck", JobID: uuid.New()}))
	assert.True(t, pkgerrors.IsCode(o.Err, pkgerrors.CodeValidation))
}

func TestRemoveReturnsActiveJob(t *testing.T) {
	f := newFixture(t)
	jobID := uuid.New()
	a := f.seedAssignment(jobID)
	f.client.removeFn = func(context.Context, uuid.UUID) error { return nil }

	o := await(t, f.engine.Remove(context.Background(), a.ID))
	require.NoError(t, o.Err)

	s := f.store.Snapshot()
	assert.Empty(t, s.Assignments)
	sr, ok := s.UnassignedServiceRecord(jobID)
	require.True(t, ok)
	assert.Nil(t, sr.TechName)
}

func TestRemoveFailureRestoresAssignment(t *testing.T) {
	f := newFixture(t)
	jobID := uuid.New()
	a := f.seedAssignment(jobID)
	f.client.removeFn = func(context.Context, uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeTransport, "offline")
	}

	o := await(t, f.engine.Remove(context.Background(), a.ID))
	require.Error(t, o.Err)

	s := f.store.Snapshot()
	_, ok := s.Assignment(a.ID)
	assert.True(t, ok)
	_, pooled := s.UnassignedServiceRecord(jobID)
	assert.False(t, pooled)
	assert.Equal(t, 1, f.notifier.count())
}

func TestRefreshLoadsCurrentWeek(t *testing.T) {
	orgID := uuid.New()
	loader := &stubLoader{
		techs: []board.TechnicianView{{ID: uuid.New(), OrganizationID: orgID, Name: "Alice"}},
		jobs:  board.UnassignedJobs{ServiceRecords: []board.ServiceRecordSummary{{ID: uuid.New()}}},
	}
	store := NewStore(New(orgID))
	engine, err := NewEngine(EngineParams{Store: store, Client: &stubClient{}, Loader: loader})
	require.NoError(t, err)

	prev := timeNow
	timeNow = func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = prev })

	require.NoError(t, engine.Refresh(context.Background()))
	s := store.Snapshot()
	assert.Equal(t, "2026-01-12", s.WeekStart.String())
	assert.Len(t, s.Technicians, 1)
	assert.Len(t, s.UnassignedServiceRecords, 1)

	require.NoError(t, engine.NavigateWeek(context.Background(), types.MustParseDate("2026-01-21")))
	assert.Equal(t, "2026-01-19", store.Snapshot().WeekStart.String())
	require.Len(t, loader.weeks, 2)
	assert.Equal(t, "2026-01-19", loader.weeks[1].String())
}

func TestReconnectTriggersRefresh(t *testing.T) {
	f := newFixture(t)
	loader := &stubLoader{}
	engine, err := NewEngine(EngineParams{Store: f.store, Client: f.client, Loader: loader})
	require.NoError(t, err)

	engine.SetConnected(true)
	assert.Zero(t, loader.loads.Load(), "first connect does not reload")

	engine.SetConnected(false)
	assert.False(t, f.store.Snapshot().Connected)

	engine.SetConnected(true)
	assert.Eventually(t, func() bool { return loader.loads.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.store.Snapshot().Connected)
}

func TestEngineAppliesRealtimeEvents(t *testing.T) {
	f := newFixture(t)
	a := serviceRecordAssignment(f.orgID, f.bob, uuid.New(), "2026-01-13")
	f.engine.ApplyEvent(board.AssignmentCreated(a))
	_, ok := f.store.Snapshot().Assignment(a.ID)
	assert.True(t, ok)
}
