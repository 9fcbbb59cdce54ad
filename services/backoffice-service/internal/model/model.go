package model

import "time"

// Haircut is one logged service, independent of whether it came through the
// online agenda or a walk-in.
type Haircut struct {
	ID        int64
	Date      string // YYYY-MM-DD
	Barber    string
	Client    string
	Style     string
	Price     float64
	Notes     string
	CreatedAt time.Time
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Stock       int
	UnitPrice   float64
	CreatedAt   time.Time
}

// LedgerKind distinguishes the two sides of the shop's cash ledger.
type LedgerKind string

const (
	KindIncome  LedgerKind = "income"
	KindExpense LedgerKind = "expense"
)

type LedgerEntry struct {
	ID        int64
	Kind      LedgerKind
	Date      string // YYYY-MM-DD
	Concept   string
	Amount    float64
	Notes     string
	CreatedAt time.Time
}

// AcceptedAppointment is the event-fed cache row used by the activity report.
// It mirrors the agenda's accepted appointments; the agenda remains the source
// of truth.
type AcceptedAppointment struct {
	AppointmentID int64
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	ClientName    string
	Barber        string
	Service       string
	UpdatedAt     time.Time
}
