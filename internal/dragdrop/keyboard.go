package dragdrop

import (
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

type Key int

const (
	KeySpace Key = iota + 1
	KeyEnter
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// DaysPerWeek is the number of day columns on the board.
const DaysPerWeek = 7

// Grid is the keyboard-navigable board: technicians down, days across.
type Grid struct {
	Technicians []uuid.UUID
	Days        []types.Date
}

// GridFor builds the grid for the displayed week using the active
// technicians in board order.
func GridFor(s boardstate.State) Grid {
	var g Grid
	for _, t := range s.Technicians {
		if t.IsActive {
			g.Technicians = append(g.Technicians, t.ID)
		}
	}
	week := s.WeekStart
	if week.IsZero() {
		return g
	}
	for i := 0; i < DaysPerWeek; i++ {
		g.Days = append(g.Days, week.AddDays(i))
	}
	return g
}

func (g Grid) empty() bool {
	return len(g.Technicians) == 0 || len(g.Days) == 0
}

func (g Grid) cell(row, col int) Target {
	return Target{TechnicianID: g.Technicians[row], Date: g.Days[col]}
}

func (g Grid) indexOf(t Target) (row, col int, ok bool) {
	row, col = -1, -1
	for i, id := range g.Technicians {
		if id == t.TechnicianID {
			row = i
		}
	}
	for i, d := range g.Days {
		if d == t.Date {
			col = i
		}
	}
	if row < 0 || col < 0 {
		return 0, 0, false
	}
	return row, col, true
}

// KeyboardSensor picks up the focused item with Space or Enter, moves a
// cursor over the grid with the arrow keys, drops with Space or Enter and
// cancels with Escape.
type KeyboardSensor struct {
	mu      sync.Mutex
	grid    Grid
	focused *Item
	origin  Target
	row     int
	col     int
	active  bool
}

func NewKeyboardSensor(grid Grid) *KeyboardSensor {
	return &KeyboardSensor{grid: grid}
}

// SetGrid replaces the grid, e.g. after week navigation. An active drag is
// cancelled and the returned EventCancel must reach the controller.
func (s *KeyboardSensor) SetGrid(grid Grid) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = grid
	return s.cancelLocked()
}

// Focus marks the item that Space or Enter will pick up. from is the cell
// the item currently sits in; unassigned jobs pass a zero Target.
func (s *KeyboardSensor) Focus(item Item, from Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	if !item.Valid() {
		s.focused = nil
		return
	}
	s.focused = &item
	s.origin = from
}

func (s *KeyboardSensor) Key(k Key) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		if (k != KeySpace && k != KeyEnter) || s.focused == nil || s.grid.empty() {
			return Event{}, false
		}
		s.row, s.col = 0, 0
		if row, col, ok := s.grid.indexOf(s.origin); ok {
			s.row, s.col = row, col
		}
		s.active = true
		return Event{Kind: EventPickUp, Item: *s.focused}, true
	}

	item := *s.focused
	switch k {
	case KeySpace, KeyEnter:
		target := s.grid.cell(s.row, s.col)
		s.active = false
		s.focused = nil
		return Event{Kind: EventDrop, Item: item, Target: &target}, true
	case KeyEscape:
		s.active = false
		s.focused = nil
		return Event{Kind: EventCancel, Item: item}, true
	case KeyUp:
		s.row = clamp(s.row-1, len(s.grid.Technicians))
	case KeyDown:
		s.row = clamp(s.row+1, len(s.grid.Technicians))
	case KeyLeft:
		s.col = clamp(s.col-1, len(s.grid.Days))
	case KeyRight:
		s.col = clamp(s.col+1, len(s.grid.Days))
	default:
		return Event{}, false
	}
	target := s.grid.cell(s.row, s.col)
	return Event{Kind: EventDragOver, Item: item, Target: &target}, true
}

func (s *KeyboardSensor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *KeyboardSensor) Cancel() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

func (s *KeyboardSensor) cancelLocked() (Event, bool) {
	if !s.active {
		return Event{}, false
	}
	item := *s.focused
	s.active = false
	s.focused = nil
	return Event{Kind: EventCancel, Item: item}, true
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
