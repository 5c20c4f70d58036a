package dragdrop

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

type stubDropper struct {
	intents []boardstate.Intent
}

func (d *stubDropper) Drop(_ context.Context, intent boardstate.Intent) <-chan boardstate.Outcome {
	d.intents = append(d.intents, intent)
	out := make(chan boardstate.Outcome, 1)
	out <- boardstate.Outcome{Intent: intent}
	close(out)
	return out
}

type testBoard struct {
	state  boardstate.State
	alice  uuid.UUID
	bob    uuid.UUID
	placed board.AssignmentView
	job    uuid.UUID
}

func newTestBoard() *testBoard {
	b := &testBoard{alice: uuid.New(), bob: uuid.New(), job: uuid.New()}
	orgID := uuid.New()
	srID := uuid.New()
	b.placed = board.AssignmentView{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		Date:            types.MustParseDate("2026-01-13"),
		TechnicianID:    b.alice,
		ServiceRecordID: &srID,
		SortOrder:       3,
	}
	s := boardstate.New(orgID)
	s = boardstate.SetWeek(s, types.MustParseDate("2026-01-12"))
	s = boardstate.SetTechnicians(s, []board.TechnicianView{
		{ID: b.alice, OrganizationID: orgID, Name: "Alice", IsActive: true},
		{ID: b.bob, OrganizationID: orgID, Name: "Bob", IsActive: true},
		{ID: uuid.New(), OrganizationID: orgID, Name: "Retired", IsActive: false},
	})
	s = boardstate.SetAssignments(s, []board.AssignmentView{b.placed})
	s = boardstate.SetUnassigned(s, board.UnassignedJobs{
		ServiceRecords: []board.ServiceRecordSummary{{ID: b.job, Title: "Oil"}},
	})
	b.state = s
	return b
}

func (b *testBoard) snapshot() boardstate.State { return b.state }

// gridLocator maps x to a day column and y to a technician row, 100px each.
func gridLocator(b *testBoard) Locator {
	grid := GridFor(b.state)
	return LocatorFunc(func(p Point) (Target, bool) {
		row, col := int(p.Y/100), int(p.X/100)
		if p.X < 0 || p.Y < 0 || row >= len(grid.Technicians) || col >= len(grid.Days) {
			return Target{}, false
		}
		return grid.cell(row, col), true
	})
}

func TestPointerSensorActivationDistance(t *testing.T) {
	b := newTestBoard()
	s := NewPointerSensor(gridLocator(b))
	item := AssignmentItem(b.placed.ID)

	s.Press(item, Point{X: 150, Y: 50})
	_, ok := s.Move(Point{X: 153, Y: 53})
	assert.False(t, ok, "4.2px is below the activation distance")
	assert.False(t, s.Active())

	ev, ok := s.Move(Point{X: 155, Y: 50})
	require.True(t, ok)
	assert.Equal(t, EventPickUp, ev.Kind)
	assert.Equal(t, item, ev.Item)

	ev, ok = s.Move(Point{X: 250, Y: 150})
	require.True(t, ok)
	assert.Equal(t, EventDragOver, ev.Kind)
	require.NotNil(t, ev.Target)
	assert.Equal(t, b.bob, ev.Target.TechnicianID)
	assert.Equal(t, "2026-01-14", ev.Target.Date.String())

	ev, ok = s.Release(Point{X: -20, Y: 50})
	require.True(t, ok)
	assert.Equal(t, EventDrop, ev.Kind)
	assert.Nil(t, ev.Target, "released off the grid")
	assert.False(t, s.Active())
}

func TestPointerSensorClickEmitsNothing(t *testing.T) {
	s := NewPointerSensor(nil)
	s.Press(JobItem(enums.JobKindServiceRecord, uuid.New()), Point{})
	_, ok := s.Release(Point{X: 1})
	assert.False(t, ok)
	_, ok = s.Cancel()
	assert.False(t, ok)
}

func TestTouchSensorHoldActivates(t *testing.T) {
	b := newTestBoard()
	s := NewTouchSensor(gridLocator(b))
	start := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	s.Start(JobItem(enums.JobKindServiceRecord, b.job), Point{X: 10, Y: 10}, start)

	_, ok := s.Hold(start.Add(200 * time.Millisecond))
	assert.False(t, ok)

	_, ok = s.Move(Point{X: 13, Y: 13}, start.Add(220*time.Millisecond))
	assert.False(t, ok, "small drift before the delay keeps waiting")

	ev, ok := s.Hold(start.Add(250 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, EventPickUp, ev.Kind)

	ev, ok = s.End(Point{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, EventDrop, ev.Kind)
	require.NotNil(t, ev.Target)
	assert.Equal(t, b.alice, ev.Target.TechnicianID)
}

func TestTouchSensorMovementBeforeActivationCancels(t *testing.T) {
	s := NewTouchSensor(nil)
	start := time.Now()
	s.Start(JobItem(enums.JobKindInspection, uuid.New()), Point{}, start)

	_, ok := s.Move(Point{X: 6}, start.Add(100*time.Millisecond))
	assert.False(t, ok)
	_, ok = s.Hold(start.Add(time.Second))
	assert.False(t, ok, "an abandoned gesture never activates")
	assert.False(t, s.Active())
}

func TestKeyboardSensorNavigatesGrid(t *testing.T) {
	b := newTestBoard()
	grid := GridFor(b.state)
	require.Len(t, grid.Technicians, 2, "inactive technicians are not navigable")
	require.Len(t, grid.Days, DaysPerWeek)

	s := NewKeyboardSensor(grid)
	_, ok := s.Key(KeySpace)
	assert.False(t, ok, "nothing focused")

	s.Focus(AssignmentItem(b.placed.ID), Target{TechnicianID: b.alice, Date: b.placed.Date})
	ev, ok := s.Key(KeyEnter)
	require.True(t, ok)
	assert.Equal(t, EventPickUp, ev.Kind)

	ev, _ = s.Key(KeyRight)
	assert.Equal(t, "2026-01-14", ev.Target.Date.String())
	ev, _ = s.Key(KeyDown)
	assert.Equal(t, b.bob, ev.Target.TechnicianID)
	ev, _ = s.Key(KeyDown)
	assert.Equal(t, b.bob, ev.Target.TechnicianID, "cursor stays on the last row")

	ev, ok = s.Key(KeySpace)
	require.True(t, ok)
	assert.Equal(t, EventDrop, ev.Kind)
	assert.Equal(t, Target{TechnicianID: b.bob, Date: types.MustParseDate("2026-01-14")}, *ev.Target)
	assert.False(t, s.Active())
}

func TestKeyboardSensorEscapeCancels(t *testing.T) {
	b := newTestBoard()
	s := NewKeyboardSensor(GridFor(b.state))
	s.Focus(JobItem(enums.JobKindServiceRecord, b.job), Target{})
	_, ok := s.Key(KeySpace)
	require.True(t, ok)

	ev, ok := s.Key(KeyEscape)
	require.True(t, ok)
	assert.Equal(t, EventCancel, ev.Kind)
	_, ok = s.Key(KeyLeft)
	assert.False(t, ok)
}

func TestKeyboardSensorGridChangeCancelsControllerDrag(t *testing.T) {
	b := newTestBoard()
	ctx := context.Background()
	s := NewKeyboardSensor(GridFor(b.state))
	c := NewController(b.snapshot, nil)

	_, ok := s.SetGrid(GridFor(b.state))
	assert.False(t, ok, "no drag to cancel")

	s.Focus(AssignmentItem(b.placed.ID), Target{TechnicianID: b.alice, Date: b.placed.Date})
	ev, ok := s.Key(KeySpace)
	require.True(t, ok)
	c.Handle(ctx, ev)
	_, active := c.Active()
	require.True(t, active)

	next := boardstate.SetWeek(b.state, types.MustParseDate("2026-01-19"))
	ev, ok = s.SetGrid(GridFor(next))
	require.True(t, ok)
	assert.Equal(t, EventCancel, ev.Kind)
	assert.Equal(t, AssignmentItem(b.placed.ID), ev.Item)

	res := c.Handle(ctx, ev)
	assert.True(t, res.Cancelled)
	_, active = c.Active()
	assert.False(t, active)
	_, over := c.Over()
	assert.False(t, over)
	assert.False(t, s.Active())
	_, ok = s.Key(KeyRight)
	assert.False(t, ok, "sensor is idle on the new grid")
}

func TestControllerPlacesJob(t *testing.T) {
	b := newTestBoard()
	dropper := &stubDropper{}
	c := NewController(b.snapshot, dropper)
	target := Target{TechnicianID: b.alice, Date: types.MustParseDate("2026-01-13")}

	c.Handle(context.Background(), Event{Kind: EventPickUp, Item: JobItem(enums.JobKindServiceRecord, b.job)})
	c.Handle(context.Background(), Event{Kind: EventDragOver, Target: &target})
	over, ok := c.Over()
	require.True(t, ok)
	assert.Equal(t, target, over)

	res := c.Handle(context.Background(), Event{Kind: EventDrop, Target: &target})
	require.NotNil(t, res.Intent)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, boardstate.IntentPlace, res.Intent.Kind)
	assert.Equal(t, b.job, res.Intent.JobID)
	assert.Equal(t, 1, res.Intent.SortOrder, "appended after the card already in the cell")
	require.Len(t, dropper.intents, 1)

	_, active := c.Active()
	assert.False(t, active)
}

func TestControllerMoveKeepsSortOrderInSameCell(t *testing.T) {
	b := newTestBoard()
	c := NewController(b.snapshot, nil)
	target := Target{TechnicianID: b.alice, Date: b.placed.Date}

	c.Handle(context.Background(), Event{Kind: EventPickUp, Item: AssignmentItem(b.placed.ID)})
	res := c.Handle(context.Background(), Event{Kind: EventDrop, Target: &target})
	require.NotNil(t, res.Intent)
	assert.Equal(t, boardstate.IntentMove, res.Intent.Kind)
	assert.Equal(t, 3, res.Intent.SortOrder)
	assert.Nil(t, res.Outcome)
}

func TestControllerCancellations(t *testing.T) {
	b := newTestBoard()
	dropper := &stubDropper{}
	c := NewController(b.snapshot, dropper)
	ctx := context.Background()
	item := AssignmentItem(b.placed.ID)

	cases := map[string]*Target{
		"off grid":           nil,
		"invalid cell":       {TechnicianID: b.alice},
		"unknown technician": {TechnicianID: uuid.New(), Date: b.placed.Date},
		"inactive column":    {TechnicianID: b.state.Technicians[2].ID, Date: b.placed.Date},
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			c.Handle(ctx, Event{Kind: EventPickUp, Item: item})
			res := c.Handle(ctx, Event{Kind: EventDrop, Target: target})
			assert.True(t, res.Cancelled)
			assert.Nil(t, res.Intent)
		})
	}

	c.Handle(ctx, Event{Kind: EventPickUp, Item: item})
	res := c.Handle(ctx, Event{Kind: EventCancel})
	assert.True(t, res.Cancelled)

	target := Target{TechnicianID: b.bob, Date: b.placed.Date}
	res = c.Handle(ctx, Event{Kind: EventDrop, Target: &target})
	assert.True(t, res.Cancelled, "drop without a pick up")

	assert.Empty(t, dropper.intents)
}

func TestDerivePool(t *testing.T) {
	assigned := uuid.New()
	shared := uuid.New()
	s := boardstate.New(uuid.New())
	s = boardstate.SetAssignments(s, []board.AssignmentView{{ID: uuid.New(), ServiceRecordID: &assigned}})
	s.UnassignedServiceRecords = []board.ServiceRecordSummary{
		{ID: assigned}, {ID: shared}, {ID: shared}, {ID: uuid.New()}, {ID: uuid.New()},
	}
	s.UnassignedInspections = []board.InspectionSummary{{ID: shared}, {ID: uuid.New()}}

	pool := DerivePool(s, 2)
	require.Len(t, pool.ServiceRecords, 2)
	assert.Equal(t, shared, pool.ServiceRecords[0].ID)
	require.Len(t, pool.Inspections, 1)
	assert.NotEqual(t, shared, pool.Inspections[0].ID)

	for _, sr := range pool.ServiceRecords {
		assert.NotEqual(t, assigned, sr.ID)
	}

	empty := DerivePool(boardstate.New(uuid.New()), 0)
	assert.NotNil(t, empty.ServiceRecords)
	assert.NotNil(t, empty.Inspections)
}
