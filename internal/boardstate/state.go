// Package boardstate is the client side cache of one organization's work
// board. State values are immutable: every reducer returns a new State and
// never writes into the slices of its input.
package boardstate

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// State is one snapshot of the board as the client sees it.
type State struct {
	OrganizationID           uuid.UUID
	Technicians              []board.TechnicianView
	Assignments              []board.AssignmentView
	UnassignedServiceRecords []board.ServiceRecordSummary
	UnassignedInspections    []board.InspectionSummary
	WeekStart                types.Date
	Connected                bool
}

// New returns an empty board for the organization.
func New(orgID uuid.UUID) State {
	return State{OrganizationID: orgID}
}

// Assignment looks up an assignment by id.
func (s State) Assignment(id uuid.UUID) (board.AssignmentView, bool) {
	for _, a := range s.Assignments {
		if a.ID == id {
			return a, true
		}
	}
	return board.AssignmentView{}, false
}

// UnassignedServiceRecord looks up a service record in the unassigned pool.
func (s State) UnassignedServiceRecord(id uuid.UUID) (board.ServiceRecordSummary, bool) {
	for _, sr := range s.UnassignedServiceRecords {
		if sr.ID == id {
			return sr, true
		}
	}
	return board.ServiceRecordSummary{}, false
}

// UnassignedInspection looks up an inspection in the unassigned pool.
func (s State) UnassignedInspection(id uuid.UUID) (board.InspectionSummary, bool) {
	for _, in := range s.UnassignedInspections {
		if in.ID == id {
			return in, true
		}
	}
	return board.InspectionSummary{}, false
}

func SetAssignments(s State, assignments []board.AssignmentView) State {
	s.Assignments = append([]board.AssignmentView(nil), assignments...)
	return s
}

// AddAssignment inserts the assignment or replaces the one with the same id.
func AddAssignment(s State, a board.AssignmentView) State {
	if _, ok := s.Assignment(a.ID); ok {
		return UpdateAssignment(s, a)
	}
	next := make([]board.AssignmentView, 0, len(s.Assignments)+1)
	next = append(next, s.Assignments...)
	s.Assignments = append(next, a)
	return s
}

// UpdateAssignment replaces the assignment with the same id. Unknown ids are
// ignored.
func UpdateAssignment(s State, a board.AssignmentView) State {
	next := make([]board.AssignmentView, len(s.Assignments))
	copy(next, s.Assignments)
	for i := range next {
		if next[i].ID == a.ID {
			next[i] = a
		}
	}
	s.Assignments = next
	return s
}

func RemoveAssignment(s State, id uuid.UUID) State {
	next := make([]board.AssignmentView, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		if a.ID != id {
			next = append(next, a)
		}
	}
	s.Assignments = next
	return s
}

// OptimisticMove rewrites only the technician and date of an assignment.
func OptimisticMove(s State, id, technicianID uuid.UUID, date types.Date) State {
	next := make([]board.AssignmentView, len(s.Assignments))
	copy(next, s.Assignments)
	for i := range next {
		if next[i].ID == id {
			next[i].TechnicianID = technicianID
			next[i].Date = date
		}
	}
	s.Assignments = next
	return s
}

func SetTechnicians(s State, technicians []board.TechnicianView) State {
	s.Technicians = append([]board.TechnicianView(nil), technicians...)
	return s
}

// AddTechnician inserts the technician or replaces the one with the same id.
func AddTechnician(s State, t board.TechnicianView) State {
	for _, existing := range s.Technicians {
		if existing.ID == t.ID {
			return UpdateTechnician(s, t)
		}
	}
	next := make([]board.TechnicianView, 0, len(s.Technicians)+1)
	next = append(next, s.Technicians...)
	s.Technicians = append(next, t)
	return s
}

func UpdateTechnician(s State, t board.TechnicianView) State {
	next := make([]board.TechnicianView, len(s.Technicians))
	copy(next, s.Technicians)
	for i := range next {
		if next[i].ID == t.ID {
			next[i] = t
		}
	}
	s.Technicians = next
	return s
}

// RemoveTechnician drops the technician and every assignment in its column.
func RemoveTechnician(s State, id uuid.UUID) State {
	techs := make([]board.TechnicianView, 0, len(s.Technicians))
	for _, t := range s.Technicians {
		if t.ID != id {
			techs = append(techs, t)
		}
	}
	assignments := make([]board.AssignmentView, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		if a.TechnicianID != id {
			assignments = append(assignments, a)
		}
	}
	s.Technicians = techs
	s.Assignments = assignments
	return s
}

// RelabelTechnicianCards copies t's name and color into the cards of its
// column. A rename also rewrites the techName of the service records on
// those cards, as the server does.
func RelabelTechnicianCards(s State, t board.TechnicianView) State {
	renamed := true
	for _, existing := range s.Technicians {
		if existing.ID == t.ID {
			renamed = existing.Name != t.Name
		}
	}
	next := make([]board.AssignmentView, len(s.Assignments))
	copy(next, s.Assignments)
	for i := range next {
		if next[i].TechnicianID != t.ID {
			continue
		}
		next[i].Technician = &board.TechnicianSummary{ID: t.ID, Name: t.Name, Color: t.Color}
		if renamed && next[i].ServiceRecord != nil {
			sr := *next[i].ServiceRecord
			name := t.Name
			sr.TechName = &name
			next[i].ServiceRecord = &sr
		}
	}
	s.Assignments = next
	return s
}

func SetUnassigned(s State, jobs board.UnassignedJobs) State {
	s.UnassignedServiceRecords = append([]board.ServiceRecordSummary(nil), jobs.ServiceRecords...)
	s.UnassignedInspections = append([]board.InspectionSummary(nil), jobs.Inspections...)
	return s
}

// AddUnassignedServiceRecord puts a service record back in the pool unless it
// is already there.
func AddUnassignedServiceRecord(s State, sr board.ServiceRecordSummary) State {
	if _, ok := s.UnassignedServiceRecord(sr.ID); ok {
		return s
	}
	next := make([]board.ServiceRecordSummary, 0, len(s.UnassignedServiceRecords)+1)
	next = append(next, s.UnassignedServiceRecords...)
	s.UnassignedServiceRecords = append(next, sr)
	return s
}

func AddUnassignedInspection(s State, in board.InspectionSummary) State {
	if _, ok := s.UnassignedInspection(in.ID); ok {
		return s
	}
	next := make([]board.InspectionSummary, 0, len(s.UnassignedInspections)+1)
	next = append(next, s.UnassignedInspections...)
	s.UnassignedInspections = append(next, in)
	return s
}

func RemoveUnassignedServiceRecord(s State, id uuid.UUID) State {
	next := make([]board.ServiceRecordSummary, 0, len(s.UnassignedServiceRecords))
	for _, sr := range s.UnassignedServiceRecords {
		if sr.ID != id {
			next = append(next, sr)
		}
	}
	s.UnassignedServiceRecords = next
	return s
}

func RemoveUnassignedInspection(s State, id uuid.UUID) State {
	next := make([]board.InspectionSummary, 0, len(s.UnassignedInspections))
	for _, in := range s.UnassignedInspections {
		if in.ID != id {
			next = append(next, in)
		}
	}
	s.UnassignedInspections = next
	return s
}

// RemoveUnassignedJob drops a job of either kind from the pool.
func RemoveUnassignedJob(s State, kind enums.JobKind, id uuid.UUID) State {
	if kind == enums.JobKindInspection {
		return RemoveUnassignedInspection(s, id)
	}
	return RemoveUnassignedServiceRecord(s, id)
}

// SetWeek moves the displayed week to the Monday of the given date.
func SetWeek(s State, date types.Date) State {
	s.WeekStart = date.WeekStart()
	return s
}

func SetConnected(s State, connected bool) State {
	s.Connected = connected
	return s
}

// ApplyEvent folds a realtime event into the state. Unknown event types and
// events of another organization leave the state unchanged.
func ApplyEvent(s State, e board.Event) State {
	if s.OrganizationID != uuid.Nil && e.OrganizationID != s.OrganizationID {
		return s
	}
	switch e.Type {
	case enums.EventAssignmentCreated:
		if e.Assignment == nil {
			return s
		}
		s = AddAssignment(s, *e.Assignment)
		if e.Assignment.ServiceRecordID != nil {
			s = RemoveUnassignedServiceRecord(s, *e.Assignment.ServiceRecordID)
		}
		if e.Assignment.InspectionID != nil {
			s = RemoveUnassignedInspection(s, *e.Assignment.InspectionID)
		}
		return s
	case enums.EventAssignmentMoved:
		if e.Assignment == nil {
			return s
		}
		return UpdateAssignment(s, *e.Assignment)
	case enums.EventAssignmentRemoved:
		if e.ID == nil {
			return s
		}
		prev, ok := s.Assignment(*e.ID)
		s = RemoveAssignment(s, *e.ID)
		if ok {
			s = returnJobToPool(s, prev)
		}
		return s
	case enums.EventTechnicianCreated:
		if e.Technician == nil {
			return s
		}
		return AddTechnician(s, *e.Technician)
	case enums.EventTechnicianUpdated:
		if e.Technician == nil {
			return s
		}
		s = RelabelTechnicianCards(s, *e.Technician)
		return AddTechnician(s, *e.Technician)
	case enums.EventTechnicianRemoved:
		if e.ID == nil {
			return s
		}
		// The server deletes the whole column; its active jobs rejoin the pool.
		removed := make(map[uuid.UUID]bool, len(e.AssignmentIDs))
		for _, id := range e.AssignmentIDs {
			removed[id] = true
		}
		for _, a := range s.Assignments {
			if a.TechnicianID == *e.ID || removed[a.ID] {
				s = returnJobToPool(s, a)
			}
		}
		s = RemoveTechnician(s, *e.ID)
		for _, id := range e.AssignmentIDs {
			s = RemoveAssignment(s, id)
		}
		return s
	default:
		return s
	}
}
