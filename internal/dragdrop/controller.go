package dragdrop

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
)

// Dropper executes a resolved intent. *boardstate.Engine satisfies it.
type Dropper interface {
	Drop(ctx context.Context, intent boardstate.Intent) <-chan boardstate.Outcome
}

// Result is what a handled event led to. Intent is set only for a drop on a
// recognised cell; Outcome is set when that intent was handed to the Dropper.
type Result struct {
	Intent    *boardstate.Intent
	Outcome   <-chan boardstate.Outcome
	Cancelled bool
}

// Controller tracks one drag at a time across all sensors.
type Controller struct {
	snapshot func() boardstate.State
	dropper  Dropper

	mu     sync.Mutex
	active *Item
	over   *Target
}

// NewController builds a controller. snapshot supplies the board used to
// recognise drop targets; dropper may be nil when only intents are wanted.
func NewController(snapshot func() boardstate.State, dropper Dropper) *Controller {
	return &Controller{snapshot: snapshot, dropper: dropper}
}

// Active returns the item being dragged.
func (c *Controller) Active() (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Item{}, false
	}
	return *c.active, true
}

// Over returns the cell the drag is hovering.
func (c *Controller) Over() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.over == nil {
		return Target{}, false
	}
	return *c.over, true
}

func (c *Controller) Handle(ctx context.Context, e Event) Result {
	c.mu.Lock()
	switch e.Kind {
	case EventPickUp:
		item := e.Item
		c.active = &item
		c.over = nil
		c.mu.Unlock()
		return Result{}
	case EventDragOver:
		if c.active != nil {
			c.over = recognised(e.Target)
		}
		c.mu.Unlock()
		return Result{}
	case EventDrop:
		item := c.active
		target := recognised(e.Target)
		c.active, c.over = nil, nil
		c.mu.Unlock()
		if item == nil || target == nil {
			return Result{Cancelled: true}
		}
		intent, ok := c.resolve(*item, *target)
		if !ok {
			return Result{Cancelled: true}
		}
		res := Result{Intent: &intent}
		if c.dropper != nil {
			res.Outcome = c.dropper.Drop(ctx, intent)
		}
		return res
	default:
		c.active, c.over = nil, nil
		c.mu.Unlock()
		return Result{Cancelled: true}
	}
}

// resolve checks the target against the board and turns the drop into an
// intent. New placements go to the end of the cell.
func (c *Controller) resolve(item Item, target Target) (boardstate.Intent, bool) {
	var s boardstate.State
	if c.snapshot != nil {
		s = c.snapshot()
	}
	if !hasActiveTechnician(s, target) {
		return boardstate.Intent{}, false
	}
	intent := boardstate.Intent{
		TechnicianID: target.TechnicianID,
		Date:         target.Date,
		SortOrder:    cellSize(s, target, item.AssignmentID),
	}
	switch item.Kind {
	case ItemAssignment:
		current, ok := s.Assignment(item.AssignmentID)
		if !ok {
			return boardstate.Intent{}, false
		}
		intent.Kind = boardstate.IntentMove
		intent.AssignmentID = item.AssignmentID
		if current.TechnicianID == target.TechnicianID && current.Date == target.Date {
			intent.SortOrder = current.SortOrder
		}
	case ItemJob:
		intent.Kind = boardstate.IntentPlace
		intent.JobKind = item.JobKind
		intent.JobID = item.JobID
	default:
		return boardstate.Intent{}, false
	}
	return intent, true
}

func recognised(t *Target) *Target {
	if t == nil || !t.Valid() {
		return nil
	}
	out := *t
	return &out
}

func hasActiveTechnician(s boardstate.State, t Target) bool {
	for _, tech := range s.Technicians {
		if tech.ID == t.TechnicianID {
			return tech.IsActive
		}
	}
	return false
}

func cellSize(s boardstate.State, t Target, skip uuid.UUID) int {
	n := 0
	for _, a := range s.Assignments {
		if a.ID == skip {
			continue
		}
		if a.TechnicianID == t.TechnicianID && a.Date == t.Date {
			n++
		}
	}
	return n
}
