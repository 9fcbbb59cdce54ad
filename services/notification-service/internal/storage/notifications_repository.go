package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/libs/db"
)

type Notification struct {
	AppointmentID int64
	EventType     string
	Channel       string
	Recipient     string
	Subject       string
	Status        string // sent | failed
	LastError     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes the delivery record inside the caller's transaction so the
// record and its result event commit or roll back together.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, n Notification) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications (appointment_id, event_type, channel, recipient, subject, status, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.AppointmentID, n.EventType, n.Channel, n.Recipient, n.Subject, n.Status, n.LastError)
	return err
}
