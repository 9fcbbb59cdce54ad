package storage

import (
	"context"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

// AcceptedCacheRepository maintains the event-fed mirror of the agenda's
// accepted appointments. Events arrive at least once, so every write is an
// upsert keyed on the appointment id.
type AcceptedCacheRepository struct {
	pool *db.Pool
}

func NewAcceptedCacheRepository(pool *db.Pool) *AcceptedCacheRepository {
	return &AcceptedCacheRepository{pool: pool}
}

func (r *AcceptedCacheRepository) Upsert(ctx context.Context, a model.AcceptedAppointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accepted_appointments (appointment_id, appointment_date, slot_time, client_name, barber, service)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		ON CONFLICT (appointment_id) DO UPDATE
		SET appointment_date = EXCLUDED.appointment_date,
			slot_time = EXCLUDED.slot_time,
			client_name = EXCLUDED.client_name,
			barber = EXCLUDED.barber,
			service = EXCLUDED.service,
			updated_at = now()
	`, a.AppointmentID, a.Date, a.Time, a.ClientName, a.Barber, a.Service)
	return err
}

// Remove drops the cached row when the agenda cancels the appointment.
// Removing an id that was never cached is not an error.
func (r *AcceptedCacheRepository) Remove(ctx context.Context, appointmentID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accepted_appointments WHERE appointment_id = $1`, appointmentID)
	return err
}

// CountByBarber returns accepted-appointment counts per barber inside the
// period. Unassigned appointments count under the empty barber key.
func (r *AcceptedCacheRepository) CountByBarber(ctx context.Context, from, to string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT barber, COUNT(*)
		FROM accepted_appointments
		WHERE ($1 = '' OR appointment_date >= $1::date)
		  AND ($2 = '' OR appointment_date <= $2::date)
		GROUP BY barber
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var barber string
		var n int
		if err := rows.Scan(&barber, &n); err != nil {
			return nil, err
		}
		counts[barber] = n
	}
	return counts, rows.Err()
}
