package notify

import (
	"strings"
	"testing"
)

func TestParseAppointmentEvent(t *testing.T) {
	evt, err := ParseAppointmentEvent([]byte(`{"appointment_id":12,"date":"2026-09-01","time":"09:30","client_name":"Ana"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.AppointmentID != 12 || evt.Time != "09:30" {
		t.Fatalf("parsed %+v", evt)
	}

	if _, err := ParseAppointmentEvent([]byte(`{"date":"2026-09-01"}`)); err == nil {
		t.Fatal("expected error for missing appointment_id")
	}
	if _, err := ParseAppointmentEvent([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestCompose_KnownEvents(t *testing.T) {
	evt := AppointmentEvent{
		AppointmentID: 4,
		Date:          "2026-09-01",
		Time:          "10:00",
		ClientName:    "Ana",
		Barber:        "Luis",
		Service:       "fade",
	}

	cases := []struct {
		eventType string
		wantWord  string
	}{
		{"agenda.appointment.requested.v1", "request"},
		{"agenda.appointment.accepted.v1", "confirmed"},
		{"agenda.appointment.rejected.v1", "rejected"},
		{"agenda.appointment.rescheduled.v1", "moved"},
		{"agenda.appointment.updated.v1", "updated"},
		{"agenda.appointment.cancelled.v1", "cancelled"},
	}
	for _, tc := range cases {
		subject, body := Compose(tc.eventType, evt)
		if !strings.Contains(strings.ToLower(subject), tc.wantWord) {
			t.Errorf("%s: subject %q missing %q", tc.eventType, subject, tc.wantWord)
		}
		if !strings.Contains(body, "Ana") || !strings.Contains(body, "2026-09-01") {
			t.Errorf("%s: body %q missing client or date", tc.eventType, body)
		}
		if !strings.Contains(body, "Luis") || !strings.Contains(body, "fade") {
			t.Errorf("%s: body %q missing barber or service", tc.eventType, body)
		}
	}
}

func TestSlotChanged(t *testing.T) {
	base := AppointmentEvent{AppointmentID: 7, Date: "2026-09-01", Time: "10:00"}

	same := base
	same.PreviousDate, same.PreviousTime = "2026-09-01", "10:00"
	if same.SlotChanged() {
		t.Error("identical previous slot should not count as a move")
	}

	moved := base
	moved.PreviousDate, moved.PreviousTime = "2026-09-01", "09:30"
	if !moved.SlotChanged() {
		t.Error("different previous time should count as a move")
	}

	otherDay := base
	otherDay.PreviousDate, otherDay.PreviousTime = "2026-08-31", "10:00"
	if !otherDay.SlotChanged() {
		t.Error("different previous date should count as a move")
	}

	// Payloads without previous fields are treated as moves so the
	// reminder is rebuilt rather than left on a possibly stale slot.
	if !base.SlotChanged() {
		t.Error("missing previous slot should count as a move")
	}
}

func TestCompose_UnknownEventAndBlankClient(t *testing.T) {
	subject, body := Compose("agenda.appointment.something.v2", AppointmentEvent{AppointmentID: 9, Date: "2026-09-01", Time: "10:00"})
	if !strings.Contains(subject, "9") {
		t.Errorf("fallback subject %q should carry the appointment id", subject)
	}
	if !strings.Contains(body, "agenda.appointment.something.v2") {
		t.Errorf("fallback body %q should carry the event type", body)
	}

	_, body = Compose("agenda.appointment.requested.v1", AppointmentEvent{AppointmentID: 9, Date: "2026-09-01", Time: "10:00"})
	if !strings.Contains(body, "a client") {
		t.Errorf("body %q should fall back to a generic client name", body)
	}
}
