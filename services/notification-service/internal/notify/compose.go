// Package notify turns agenda events into administrator emails and reminder
// jobs.
package notify

import (
	"encoding/json"
	"fmt"
)

// AppointmentEvent is the payload shared by the agenda's appointment events.
// PreviousDate/PreviousTime are set only on reschedules.
type AppointmentEvent struct {
	AppointmentID int64  `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	Barber        string `json:"barber"`
	Service       string `json:"service"`
	Status        string `json:"status"`
	PreviousDate  string `json:"previous_date"`
	PreviousTime  string `json:"previous_time"`
}

// SlotChanged reports whether a reschedule actually moved the appointment to
// another slot. Payloads without the previous slot are treated as moved, so
// the reminder is rebuilt rather than risked stale.
func (e AppointmentEvent) SlotChanged() bool {
	if e.PreviousDate == "" && e.PreviousTime == "" {
		return true
	}
	return e.PreviousDate != e.Date || e.PreviousTime != e.Time
}

func ParseAppointmentEvent(raw []byte) (AppointmentEvent, error) {
	var evt AppointmentEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return AppointmentEvent{}, err
	}
	if evt.AppointmentID <= 0 {
		return AppointmentEvent{}, fmt.Errorf("event missing appointment_id")
	}
	return evt, nil
}

// Compose renders the admin email for one event type. Unknown event types get
// a generic subject so nothing consumed goes unreported.
func Compose(eventType string, evt AppointmentEvent) (subject, body string) {
	who := evt.ClientName
	if who == "" {
		who = "a client"
	}
	when := fmt.Sprintf("%s at %s", evt.Date, evt.Time)

	switch eventType {
	case "agenda.appointment.requested.v1":
		subject = fmt.Sprintf("New appointment request: %s, %s", who, when)
		body = fmt.Sprintf("%s requested an appointment for %s.", who, when)
	case "agenda.appointment.accepted.v1":
		subject = fmt.Sprintf("Appointment confirmed: %s, %s", who, when)
		body = fmt.Sprintf("The appointment for %s on %s was accepted.", who, when)
	case "agenda.appointment.rejected.v1":
		subject = fmt.Sprintf("Appointment rejected: %s, %s", who, when)
		body = fmt.Sprintf("The appointment for %s on %s was rejected; the slot is free again.", who, when)
	case "agenda.appointment.rescheduled.v1":
		subject = fmt.Sprintf("Appointment moved: %s, %s", who, when)
		body = fmt.Sprintf("The appointment for %s was moved to %s.", who, when)
	case "agenda.appointment.updated.v1":
		subject = fmt.Sprintf("Appointment updated: %s, %s", who, when)
		body = fmt.Sprintf("Details changed for the appointment of %s on %s.", who, when)
	case "agenda.appointment.cancelled.v1":
		subject = fmt.Sprintf("Appointment cancelled: %s, %s", who, when)
		body = fmt.Sprintf("The appointment for %s on %s was cancelled.", who, when)
	default:
		subject = fmt.Sprintf("Agenda update: appointment %d", evt.AppointmentID)
		body = fmt.Sprintf("Event %s for appointment %d (%s).", eventType, evt.AppointmentID, when)
	}

	if evt.Barber != "" {
		body += fmt.Sprintf(" Barber: %s.", evt.Barber)
	}
	if evt.Service != "" {
		body += fmt.Sprintf(" Service: %s.", evt.Service)
	}
	return subject, body
}
