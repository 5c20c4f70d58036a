package dragdrop

import (
	"sync"
	"time"
)

const (
	// PointerActivationDistance is how far a pressed pointer must travel
	// before the press becomes a drag.
	PointerActivationDistance = 5.0
	// TouchActivationDelay is how long a finger must rest before a drag
	// starts.
	TouchActivationDelay = 250 * time.Millisecond
	// TouchTolerance is how far a finger may drift during the hold.
	TouchTolerance = 5.0
)

// Sensor is the capability shared by every input source. Each sensor also
// exposes its own raw input methods that return the Event they produce, if
// any.
type Sensor interface {
	// Active reports whether a drag is in progress.
	Active() bool
	// Cancel aborts the drag. It returns a cancel event only when a drag was
	// active.
	Cancel() (Event, bool)
}

var (
	_ Sensor = (*PointerSensor)(nil)
	_ Sensor = (*TouchSensor)(nil)
	_ Sensor = (*KeyboardSensor)(nil)
)

// PointerSensor activates once the pointer has moved far enough from where
// it was pressed. A press released before that is a click and emits nothing.
type PointerSensor struct {
	locator  Locator
	distance float64

	mu      sync.Mutex
	item    Item
	origin  Point
	pressed bool
	active  bool
}

func NewPointerSensor(locator Locator) *PointerSensor {
	return &PointerSensor{locator: locator, distance: PointerActivationDistance}
}

func (s *PointerSensor) Press(item Item, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !item.Valid() {
		return
	}
	s.item = item
	s.origin = p
	s.pressed = true
	s.active = false
}

func (s *PointerSensor) Move(p Point) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pressed {
		return Event{}, false
	}
	if !s.active {
		if p.distance(s.origin) < s.distance {
			return Event{}, false
		}
		s.active = true
		return Event{Kind: EventPickUp, Item: s.item}, true
	}
	return Event{Kind: EventDragOver, Item: s.item, Target: locate(s.locator, p)}, true
}

func (s *PointerSensor) Release(p Point) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, item := s.active, s.item
	s.reset()
	if !active {
		return Event{}, false
	}
	return Event{Kind: EventDrop, Item: item, Target: locate(s.locator, p)}, true
}

func (s *PointerSensor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *PointerSensor) Cancel() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, item := s.active, s.item
	s.reset()
	if !active {
		return Event{}, false
	}
	return Event{Kind: EventCancel, Item: item}, true
}

func (s *PointerSensor) reset() {
	s.pressed = false
	s.active = false
	s.item = Item{}
}

// TouchSensor activates after the finger rests within TouchTolerance for
// TouchActivationDelay. Moving further before that abandons the gesture so
// the page can scroll.
type TouchSensor struct {
	locator   Locator
	delay     time.Duration
	tolerance float64

	mu      sync.Mutex
	item    Item
	origin  Point
	started time.Time
	touched bool
	active  bool
}

func NewTouchSensor(locator Locator) *TouchSensor {
	return &TouchSensor{locator: locator, delay: TouchActivationDelay, tolerance: TouchTolerance}
}

func (s *TouchSensor) Start(item Item, p Point, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !item.Valid() {
		return
	}
	s.item = item
	s.origin = p
	s.started = at
	s.touched = true
	s.active = false
}

// Hold is called from a timer while the finger rests. It activates the drag
// once the delay has elapsed.
func (s *TouchSensor) Hold(at time.Time) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activate(at)
}

func (s *TouchSensor) Move(p Point, at time.Time) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.touched {
		return Event{}, false
	}
	if s.active {
		return Event{Kind: EventDragOver, Item: s.item, Target: locate(s.locator, p)}, true
	}
	if p.distance(s.origin) > s.tolerance {
		s.reset()
		return Event{}, false
	}
	return s.activate(at)
}

func (s *TouchSensor) End(p Point) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, item := s.active, s.item
	s.reset()
	if !active {
		return Event{}, false
	}
	return Event{Kind: EventDrop, Item: item, Target: locate(s.locator, p)}, true
}

func (s *TouchSensor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *TouchSensor) Cancel() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, item := s.active, s.item
	s.reset()
	if !active {
		return Event{}, false
	}
	return Event{Kind: EventCancel, Item: item}, true
}

func (s *TouchSensor) activate(at time.Time) (Event, bool) {
	if !s.touched || s.active || at.Sub(s.started) < s.delay {
		return Event{}, false
	}
	s.active = true
	return Event{Kind: EventPickUp, Item: s.item}, true
}

func (s *TouchSensor) reset() {
	s.touched = false
	s.active = false
	s.item = Item{}
}
