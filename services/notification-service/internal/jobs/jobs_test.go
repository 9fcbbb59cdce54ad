package jobs

import (
	"strings"
	"testing"
	"time"
)

func TestReminderTime(t *testing.T) {
	loc := time.UTC
	got, err := ReminderTime("2026-09-01", 7, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 9, 1, 7, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := ReminderTime("01-09-2026", 7, loc); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestReminderMessage(t *testing.T) {
	subject, body := ReminderMessage(Reminder{
		AppointmentID: 3,
		Date:          "2026-09-01",
		Time:          "10:30",
		ClientName:    "Ana",
		Barber:        "Luis",
	})
	if !strings.Contains(subject, "10:30") || !strings.Contains(subject, "Ana") {
		t.Errorf("subject %q missing time or client", subject)
	}
	if !strings.Contains(body, "Luis") {
		t.Errorf("body %q missing barber", body)
	}

	subject, _ = ReminderMessage(Reminder{AppointmentID: 3, Date: "2026-09-01", Time: "10:30"})
	if !strings.Contains(subject, "a client") {
		t.Errorf("subject %q should fall back to a generic client name", subject)
	}
}
