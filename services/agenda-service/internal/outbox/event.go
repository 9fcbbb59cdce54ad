package outbox

// Event is the domain event envelope written to the outbox table inside the
// same transaction as the state change it describes. The Kafka topic equals
// EventType (one event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Agenda event types. Versioned; payloads are additive within a version.
const (
	EventAppointmentRequested   = "agenda.appointment.requested.v1"
	EventAppointmentAccepted    = "agenda.appointment.accepted.v1"
	EventAppointmentRejected    = "agenda.appointment.rejected.v1"
	EventAppointmentRescheduled = "agenda.appointment.rescheduled.v1"
	EventAppointmentUpdated     = "agenda.appointment.updated.v1"
	EventAppointmentCancelled   = "agenda.appointment.cancelled.v1"
)
