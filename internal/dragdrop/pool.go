package dragdrop

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
	"github.com/angelmondragon/workboard-backend/pkg/board"
)

// DefaultPoolLimit caps each unassigned list when no limit is given.
const DefaultPoolLimit = 50

// DerivePool returns the unassigned lists to render. Jobs that an assignment
// already references are dropped, duplicates collapse to their first
// occurrence, an id never shows up in both lists and each list holds at most
// limit entries.
func DerivePool(s boardstate.State, limit int) board.UnassignedJobs {
	if limit <= 0 {
		limit = DefaultPoolLimit
	}
	seen := make(map[uuid.UUID]struct{}, len(s.Assignments))
	for _, a := range s.Assignments {
		if a.ServiceRecordID != nil {
			seen[*a.ServiceRecordID] = struct{}{}
		}
		if a.InspectionID != nil {
			seen[*a.InspectionID] = struct{}{}
		}
	}

	pool := board.UnassignedJobs{
		ServiceRecords: []board.ServiceRecordSummary{},
		Inspections:    []board.InspectionSummary{},
	}
	for _, sr := range s.UnassignedServiceRecords {
		if _, dup := seen[sr.ID]; dup {
			continue
		}
		seen[sr.ID] = struct{}{}
		if len(pool.ServiceRecords) < limit {
			pool.ServiceRecords = append(pool.ServiceRecords, sr)
		}
	}
	for _, in := range s.UnassignedInspections {
		if _, dup := seen[in.ID]; dup {
			continue
		}
		seen[in.ID] = struct{}{}
		if len(pool.Inspections) < limit {
			pool.Inspections = append(pool.Inspections, in)
		}
	}
	return pool
}
