// Package dragdrop turns pointer, touch and keyboard input into board drop
// intents. Sensors normalise raw input into Events, and the Controller folds
// those events into a boardstate.Intent or a cancellation.
package dragdrop

import (
	"math"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

type EventKind int

const (
	EventPickUp EventKind = iota + 1
	EventDragOver
	EventDrop
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventPickUp:
		return "pick_up"
	case EventDragOver:
		return "drag_over"
	case EventDrop:
		return "drop"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

type ItemKind int

const (
	ItemAssignment ItemKind = iota + 1
	ItemJob
)

// Item is the thing being dragged: a placed assignment or an unassigned job.
type Item struct {
	Kind         ItemKind
	AssignmentID uuid.UUID
	JobKind      enums.JobKind
	JobID        uuid.UUID
}

func AssignmentItem(id uuid.UUID) Item {
	return Item{Kind: ItemAssignment, AssignmentID: id}
}

func JobItem(kind enums.JobKind, id uuid.UUID) Item {
	return Item{Kind: ItemJob, JobKind: kind, JobID: id}
}

// Valid reports whether the item carries the reference its kind needs.
func (i Item) Valid() bool {
	switch i.Kind {
	case ItemAssignment:
		return i.AssignmentID != uuid.Nil
	case ItemJob:
		return i.JobID != uuid.Nil && i.JobKind.IsValid()
	default:
		return false
	}
}

// Target is a board cell.
type Target struct {
	TechnicianID uuid.UUID
	Date         types.Date
}

func (t Target) Valid() bool {
	return t.TechnicianID != uuid.Nil && !t.Date.IsZero()
}

// Event is one normalised drag step. Target is nil when the pointer is not
// over a cell.
type Event struct {
	Kind   EventKind
	Item   Item
	Target *Target
}

// Point is a position in screen coordinates.
type Point struct {
	X float64
	Y float64
}

func (p Point) distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Locator hit-tests a point against the rendered grid.
type Locator interface {
	Locate(p Point) (Target, bool)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(Point) (Target, bool)

func (f LocatorFunc) Locate(p Point) (Target, bool) {
	return f(p)
}

func locate(l Locator, p Point) *Target {
	if l == nil {
		return nil
	}
	t, ok := l.Locate(p)
	if !ok || !t.Valid() {
		return nil
	}
	return &t
}
