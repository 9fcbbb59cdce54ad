package schedule

// Status is the lifecycle state of an appointment, plus the derived
// "available" state a free slot reports.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// ValidStatus reports whether s is a persistable appointment status
// (available is derived, never stored).
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Entry is the slice of an appointment the resolver needs: identity for
// tie-breaking, time for slot matching, status for occupancy.
type Entry struct {
	ID     int64
	Time   string
	Status Status
}

// SlotState pairs a grid slot with its resolved status.
type SlotState struct {
	Time   string `json:"time"`
	Status Status `json:"status"`
}

// Conflict records two stored appointments occupying the same slot, which the
// storage invariant should have prevented. The higher ID won the slot.
type Conflict struct {
	Time      string
	KeptID    int64
	IgnoredID int64
}

// ResolveDay maps every slot in the grid to a status. Slots default to
// available; each entry whose normalized time matches a slot overwrites it.
// rejectedBlocks selects the legacy reading in which a rejected appointment
// still occupies its slot; the default (false) frees the slot for rebooking
// while the rejected row stays in storage as history.
//
// When two occupying entries collide on one slot the most recently created
// (highest ID) wins and the collision is reported back so callers can log it;
// it is never silently dropped.
func ResolveDay(grid []string, entries []Entry, rejectedBlocks bool) ([]SlotState, []Conflict) {
	onGrid := make(map[string]int, len(grid))
	for i, t := range grid {
		onGrid[t] = i
	}

	winners := make(map[string]Entry, len(entries))
	var conflicts []Conflict
	for _, e := range entries {
		t, err := NormalizeClock(e.Time)
		if err != nil {
			// Unparseable stored time cannot match any slot; skip it here,
			// writes reject such values up front.
			continue
		}
		if _, ok := onGrid[t]; !ok {
			continue
		}
		occupies := e.Status == StatusPending || e.Status == StatusAccepted ||
			(rejectedBlocks && e.Status == StatusRejected)
		if !occupies {
			continue
		}

		prev, taken := winners[t]
		if !taken {
			winners[t] = Entry{ID: e.ID, Time: t, Status: e.Status}
			continue
		}

		kept, ignored := prev, e
		if e.ID > prev.ID {
			kept, ignored = e, prev
			winners[t] = Entry{ID: e.ID, Time: t, Status: e.Status}
		}
		// Rejected rows only collide under the legacy flag and are not an
		// invariant violation; report only pending/accepted overlaps.
		if bothActive(kept.Status, ignored.Status) {
			conflicts = append(conflicts, Conflict{Time: t, KeptID: kept.ID, IgnoredID: ignored.ID})
		}
	}

	states := make([]SlotState, len(grid))
	for i, t := range grid {
		status := StatusAvailable
		if w, ok := winners[t]; ok {
			status = w.Status
		}
		states[i] = SlotState{Time: t, Status: status}
	}
	return states, conflicts
}

func bothActive(a, b Status) bool {
	active := func(s Status) bool { return s == StatusPending || s == StatusAccepted }
	return active(a) && active(b)
}

// SlotIsAvailable resolves a single slot out of a day's entries. It is the
// availability precondition for booking and rescheduling.
func SlotIsAvailable(grid []string, entries []Entry, slot string, rejectedBlocks bool) bool {
	states, _ := ResolveDay(grid, entries, rejectedBlocks)
	for _, st := range states {
		if st.Time == slot {
			return st.Status == StatusAvailable
		}
	}
	// A time off the grid is never bookable.
	return false
}
