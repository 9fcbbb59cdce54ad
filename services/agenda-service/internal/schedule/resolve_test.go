package schedule

import (
	"testing"
	"time"
)

func dayGrid(t *testing.T) []string {
	t.Helper()
	grid, err := SlotGrid("08:00", "19:00", 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotGrid failed: %v", err)
	}
	return grid
}

func statusAt(t *testing.T, states []SlotState, slot string) Status {
	t.Helper()
	for _, st := range states {
		if st.Time == slot {
			return st.Status
		}
	}
	t.Fatalf("slot %s not present in resolved day", slot)
	return ""
}

func TestResolveDay_Defaults(t *testing.T) {
	grid := dayGrid(t)
	states, conflicts := ResolveDay(grid, nil, false)
	if len(states) != len(grid) {
		t.Fatalf("expected %d slot states, got %d", len(grid), len(states))
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(conflicts))
	}
	for _, st := range states {
		if st.Status != StatusAvailable {
			t.Fatalf("slot %s: expected available, got %s", st.Time, st.Status)
		}
	}
}

func TestResolveDay_OverlaysStatuses(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{
		{ID: 1, Time: "09:00", Status: StatusPending},
		{ID: 2, Time: "9:30", Status: StatusAccepted}, // un-normalized stored form
		{ID: 3, Time: "10:00:00", Status: StatusRejected},
	}
	states, conflicts := ResolveDay(grid, entries, false)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if got := statusAt(t, states, "09:00"); got != StatusPending {
		t.Fatalf("09:00: expected pending, got %s", got)
	}
	if got := statusAt(t, states, "09:30"); got != StatusAccepted {
		t.Fatalf("09:30: expected accepted, got %s", got)
	}
	// A rejected appointment frees its slot for rebooking.
	if got := statusAt(t, states, "10:00"); got != StatusAvailable {
		t.Fatalf("10:00: expected available, got %s", got)
	}
	for _, st := range states {
		switch st.Status {
		case StatusAvailable, StatusPending, StatusAccepted, StatusRejected:
		default:
			t.Fatalf("slot %s carries unknown status %q", st.Time, st.Status)
		}
	}
}

func TestResolveDay_RejectedBlocksLegacyMode(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{{ID: 7, Time: "10:00", Status: StatusRejected}}

	states, _ := ResolveDay(grid, entries, true)
	if got := statusAt(t, states, "10:00"); got != StatusRejected {
		t.Fatalf("legacy mode: expected rejected, got %s", got)
	}
}

func TestResolveDay_ConflictHighestIDWins(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{
		{ID: 4, Time: "11:00", Status: StatusPending},
		{ID: 9, Time: "11:00", Status: StatusAccepted},
		{ID: 6, Time: "11:00", Status: StatusPending},
	}
	states, conflicts := ResolveDay(grid, entries, false)
	if got := statusAt(t, states, "11:00"); got != StatusAccepted {
		t.Fatalf("expected highest-id status accepted, got %s", got)
	}
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 reported conflicts, got %d", len(conflicts))
	}
	for _, c := range conflicts {
		if c.KeptID != 9 && c.KeptID != 6 {
			t.Fatalf("conflict kept unexpected id %d", c.KeptID)
		}
		if c.KeptID <= c.IgnoredID {
			t.Fatalf("conflict winner %d must outrank loser %d", c.KeptID, c.IgnoredID)
		}
	}
}

func TestResolveDay_RejectedCollisionIsNotAConflict(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{
		{ID: 2, Time: "12:00", Status: StatusRejected},
		{ID: 5, Time: "12:00", Status: StatusPending},
	}
	states, conflicts := ResolveDay(grid, entries, false)
	if got := statusAt(t, states, "12:00"); got != StatusPending {
		t.Fatalf("expected pending after rebooking over a rejection, got %s", got)
	}
	if len(conflicts) != 0 {
		t.Fatalf("rejected+pending on one slot is normal rebooking, got conflicts %v", conflicts)
	}
}

func TestResolveDay_IgnoresOffGridEntries(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{
		{ID: 1, Time: "07:00", Status: StatusPending}, // before opening
		{ID: 2, Time: "09:17", Status: StatusPending}, // not on the grid
		{ID: 3, Time: "garbage", Status: StatusPending},
	}
	states, conflicts := ResolveDay(grid, entries, false)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	for _, st := range states {
		if st.Status != StatusAvailable {
			t.Fatalf("slot %s should be untouched, got %s", st.Time, st.Status)
		}
	}
}

func TestSlotIsAvailable(t *testing.T) {
	grid := dayGrid(t)
	entries := []Entry{
		{ID: 1, Time: "09:00", Status: StatusPending},
		{ID: 2, Time: "10:00", Status: StatusRejected},
	}
	if SlotIsAvailable(grid, entries, "09:00", false) {
		t.Fatal("09:00 holds a pending appointment; must not be available")
	}
	if !SlotIsAvailable(grid, entries, "10:00", false) {
		t.Fatal("10:00 holds only a rejected appointment; must be available")
	}
	if SlotIsAvailable(grid, entries, "10:00", true) {
		t.Fatal("legacy mode: rejected must block 10:00")
	}
	if SlotIsAvailable(grid, entries, "07:30", false) {
		t.Fatal("times off the grid are never bookable")
	}
}
