package model

import (
	"time"

	"github.com/dmonge-cr/barberia/services/agenda-service/internal/schedule"
)

// Appointment is one scheduling request or confirmed booking. Date is a local
// civil date (YYYY-MM-DD, no timezone) and Time is the canonical HH:MM slot
// key; both are normalized before they reach storage.
type Appointment struct {
	ID         int64
	Date       string
	Time       string
	ClientName string
	Barber     string // empty = unassigned
	Service    string
	Status     schedule.Status
	CreatedAt  time.Time
}
