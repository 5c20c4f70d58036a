package boardstate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// MutationClient issues board mutations against the server.
type MutationClient interface {
	CreateAssignment(ctx context.Context, req board.CreateAssignmentRequest) (board.AssignmentView, error)
	MoveAssignment(ctx context.Context, req board.MoveAssignmentRequest) (board.AssignmentView, error)
	RemoveAssignment(ctx context.Context, id uuid.UUID) error
}

// Loader fetches authoritative board data.
type Loader interface {
	ListAssignments(ctx context.Context, weekStart types.Date) ([]board.AssignmentView, error)
	ListUnassignedJobs(ctx context.Context) (board.UnassignedJobs, error)
	ListTechnicians(ctx context.Context) ([]board.TechnicianView, error)
}

// Notifier surfaces failed mutations to the user.
type Notifier interface {
	Error(message string, err error)
}

type IntentKind int

const (
	IntentMove IntentKind = iota + 1
	IntentPlace
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentPlace:
		return "place"
	default:
		return "unknown"
	}
}

// Intent is a resolved drop: move an existing assignment, or place an
// unassigned job, onto (TechnicianID, Date).
type Intent struct {
	Kind         IntentKind
	AssignmentID uuid.UUID
	JobKind      enums.JobKind
	JobID        uuid.UUID
	TechnicianID uuid.UUID
	Date         types.Date
	SortOrder    int
}

// Outcome reports how a drop or removal ended. Skipped is set when nothing
// had to be sent.
type Outcome struct {
	Intent     Intent
	Assignment *board.AssignmentView
	Skipped    bool
	Err        error
}

// Engine runs the optimistic drag-end protocol against a Store.
type Engine struct {
	store    *Store
	client   MutationClient
	loader   Loader
	notifier Notifier

	mu            sync.Mutex
	everConnected bool
}

type EngineParams struct {
	Store    *Store
	Client   MutationClient
	Loader   Loader
	Notifier Notifier
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is required")
	}
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mutation client is required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{
		store:    params.Store,
		client:   params.Client,
		loader:   params.Loader,
		notifier: notifier,
	}, nil
}

func (e *Engine) Store() *Store {
	return e.store
}

// Drop applies the optimistic change before returning and runs the server
// call in the background. The returned channel yields exactly one Outcome.
func (e *Engine) Drop(ctx context.Context, intent Intent) <-chan Outcome {
	switch intent.Kind {
	case IntentMove:
		return e.move(ctx, intent)
	case IntentPlace:
		return e.place(ctx, intent)
	default:
		return settled(Outcome{Intent: intent, Err: pkgerrors.New(pkgerrors.CodeValidation, "unknown drop intent")})
	}
}

func (e *Engine) move(ctx context.Context, intent Intent) <-chan Outcome {
	var (
		prev  board.AssignmentView
		found bool
		noop  bool
	)
	e.store.Dispatch(func(s State) State {
		prev, found = s.Assignment(intent.AssignmentID)
		if !found {
			return s
		}
		if prev.TechnicianID == intent.TechnicianID && prev.Date == intent.Date {
			noop = true
			return s
		}
		return OptimisticMove(s, intent.AssignmentID, intent.TechnicianID, intent.Date)
	})
	if !found {
		return settled(Outcome{Intent: intent, Err: pkgerrors.New(pkgerrors.CodeNotFound, "assignment not on board")})
	}
	if noop {
		return settled(Outcome{Intent: intent, Skipped: true})
	}

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		view, err := e.client.MoveAssignment(ctx, board.MoveAssignmentRequest{
			ID:           intent.AssignmentID,
			TechnicianID: intent.TechnicianID,
			Date:         intent.Date,
			SortOrder:    intent.SortOrder,
		})
		if err != nil {
			e.store.Dispatch(func(s State) State {
				return OptimisticMove(s, prev.ID, prev.TechnicianID, prev.Date)
			})
			e.notifier.Error("Could not move the job. It has been put back.", err)
			out <- Outcome{Intent: intent, Err: err}
			return
		}
		e.store.Dispatch(func(s State) State { return UpdateAssignment(s, view) })
		out <- Outcome{Intent: intent, Assignment: &view}
	}()
	return out
}

func (e *Engine) place(ctx context.Context, intent Intent) <-chan Outcome {
	req := board.CreateAssignmentRequest{
		Date:         intent.Date,
		TechnicianID: intent.TechnicianID,
		SortOrder:    intent.SortOrder,
	}
	jobID := intent.JobID
	switch intent.JobKind {
	case enums.JobKindServiceRecord:
		req.ServiceRecordID = &jobID
	case enums.JobKindInspection:
		req.InspectionID = &jobID
	default:
		return settled(Outcome{Intent: intent, Err: pkgerrors.New(pkgerrors.CodeValidation, "unknown job kind")})
	}

	var (
		serviceRecord *board.ServiceRecordSummary
		inspection    *board.InspectionSummary
	)
	e.store.Dispatch(func(s State) State {
		if intent.JobKind == enums.JobKindServiceRecord {
			if sr, ok := s.UnassignedServiceRecord(jobID); ok {
				serviceRecord = &sr
			}
		} else if in, ok := s.UnassignedInspection(jobID); ok {
			inspection = &in
		}
		return RemoveUnassignedJob(s, intent.JobKind, jobID)
	})

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		view, err := e.client.CreateAssignment(ctx, req)
		if err != nil {
			e.store.Dispatch(func(s State) State {
				if serviceRecord != nil {
					s = AddUnassignedServiceRecord(s, *serviceRecord)
				}
				if inspection != nil {
					s = AddUnassignedInspection(s, *inspection)
				}
				return s
			})
			e.notifier.Error("Could not schedule the job. It is back in the unassigned list.", err)
			out <- Outcome{Intent: intent, Err: err}
			return
		}
		e.store.Dispatch(func(s State) State { return AddAssignment(s, view) })
		out <- Outcome{Intent: intent, Assignment: &view}
	}()
	return out
}

// Remove deletes an assignment optimistically, returning an active job to
// the pool, and restores both on failure.
func (e *Engine) Remove(ctx context.Context, id uuid.UUID) <-chan Outcome {
	var (
		prev  board.AssignmentView
		found bool
	)
	e.store.Dispatch(func(s State) State {
		prev, found = s.Assignment(id)
		if !found {
			return s
		}
		s = RemoveAssignment(s, id)
		return returnJobToPool(s, prev)
	})
	intent := Intent{AssignmentID: id}
	if !found {
		return settled(Outcome{Intent: intent, Err: pkgerrors.New(pkgerrors.CodeNotFound, "assignment not on board")})
	}

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		if err := e.client.RemoveAssignment(ctx, id); err != nil {
			e.store.Dispatch(func(s State) State {
				s = AddAssignment(s, prev)
				if prev.ServiceRecordID != nil {
					s = RemoveUnassignedServiceRecord(s, *prev.ServiceRecordID)
				}
				if prev.InspectionID != nil {
					s = RemoveUnassignedInspection(s, *prev.InspectionID)
				}
				return s
			})
			e.notifier.Error("Could not remove the job from the board.", err)
			out <- Outcome{Intent: intent, Err: err}
			return
		}
		out <- Outcome{Intent: intent, Assignment: &prev}
	}()
	return out
}

func returnJobToPool(s State, a board.AssignmentView) State {
	if a.ServiceRecord != nil && a.ServiceRecord.Status.IsActive() {
		sr := *a.ServiceRecord
		sr.TechName = nil
		return AddUnassignedServiceRecord(s, sr)
	}
	if a.Inspection != nil && a.Inspection.Status.IsActive() {
		return AddUnassignedInspection(s, *a.Inspection)
	}
	return s
}

// Refresh reloads technicians, the displayed week and the unassigned pool.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.loader == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "loader is required")
	}
	week := e.store.Snapshot().WeekStart
	if week.IsZero() {
		week = types.DateOf(timeNow()).WeekStart()
	}
	technicians, err := e.loader.ListTechnicians(ctx)
	if err != nil {
		return err
	}
	assignments, err := e.loader.ListAssignments(ctx, week)
	if err != nil {
		return err
	}
	jobs, err := e.loader.ListUnassignedJobs(ctx)
	if err != nil {
		return err
	}
	e.store.Dispatch(func(s State) State {
		if !s.WeekStart.IsZero() && s.WeekStart != week {
			// Navigated away mid-load: keep the newer week's assignments.
			s = SetTechnicians(s, technicians)
			return SetUnassigned(s, jobs)
		}
		s = SetWeek(s, week)
		s = SetTechnicians(s, technicians)
		s = SetAssignments(s, assignments)
		return SetUnassigned(s, jobs)
	})
	return nil
}

// NavigateWeek switches the displayed week and loads it.
func (e *Engine) NavigateWeek(ctx context.Context, date types.Date) error {
	e.store.Dispatch(func(s State) State { return SetWeek(s, date) })
	return e.Refresh(ctx)
}

// ApplyEvent lets the engine act as the realtime sink.
func (e *Engine) ApplyEvent(event board.Event) {
	e.store.ApplyEvent(event)
}

// SetConnected records the connection flag. Coming back online after a drop
// triggers a reload since missed events are never replayed.
func (e *Engine) SetConnected(connected bool) {
	prev := e.store.Snapshot().Connected
	e.store.SetConnected(connected)
	if !connected || prev {
		return
	}
	e.mu.Lock()
	reconnect := e.everConnected
	e.everConnected = true
	e.mu.Unlock()
	if reconnect && e.loader != nil {
		go func() {
			if err := e.Refresh(context.Background()); err != nil {
				e.notifier.Error("Could not refresh the board after reconnecting.", err)
			}
		}()
	}
}

var timeNow = time.Now

func settled(o Outcome) <-chan Outcome {
	out := make(chan Outcome, 1)
	out <- o
	close(out)
	return out
}

type nopNotifier struct{}

func (nopNotifier) Error(string, error) {}
