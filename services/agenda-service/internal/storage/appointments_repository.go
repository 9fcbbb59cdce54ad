package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/model"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/schedule"
)

// AppointmentsRepository persists appointments. The partial unique index on
// (appointment_date, slot_time) for pending/accepted rows is the authority on
// double booking; callers translate IsConflict into a slot-unavailable answer.
type AppointmentsRepository struct {
	pool *db.Pool
}

func NewAppointmentsRepository(pool *db.Pool) *AppointmentsRepository {
	return &AppointmentsRepository{pool: pool}
}

func (r *AppointmentsRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id, appointment_date::text, slot_time, client_name, barber, service, status, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.Date,
		&appt.Time,
		&appt.ClientName,
		&appt.Barber,
		&appt.Service,
		&status,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = schedule.Status(status)
	return appt, nil
}

// Insert creates a new appointment and returns it with its assigned ID.
// IDs come from a sequence: monotonically assigned, never reused.
func (r *AppointmentsRepository) Insert(ctx context.Context, tx pgx.Tx, appt model.Appointment) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (appointment_date, slot_time, client_name, barber, service, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+appointmentColumns+`
	`, appt.Date, appt.Time, appt.ClientName, appt.Barber, appt.Service, string(appt.Status))
	return scanAppointment(row)
}

// ListByDate returns every appointment on the given date, oldest first. When
// tx is nil the read goes through the pool.
func (r *AppointmentsRepository) ListByDate(ctx context.Context, tx pgx.Tx, date string) ([]model.Appointment, error) {
	q := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE appointment_date = $1
		ORDER BY id
	`
	var rows pgx.Rows
	var err error
	if tx != nil {
		rows, err = tx.Query(ctx, q, date)
	} else {
		rows, err = r.pool.Query(ctx, q, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// List returns appointments ordered by date and slot, optionally filtered.
func (r *AppointmentsRepository) List(ctx context.Context, date string, status schedule.Status, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR appointment_date::text = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY appointment_date, slot_time, id
		LIMIT $3
	`, date, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// GetForUpdate locks the appointment row for the rest of the transaction.
func (r *AppointmentsRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentsRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status schedule.Status) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, string(status))
	return scanAppointment(row)
}

// UpdateSchedule rewrites the reschedulable fields; identity and status are
// untouched. The slot uniqueness index also guards this write.
func (r *AppointmentsRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, id int64, date, slot, barber, service string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
			slot_time = $3,
			barber = $4,
			service = $5
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, date, slot, barber, service)
	return scanAppointment(row)
}

// Delete removes the appointment outright (cancellation frees the slot).
func (r *AppointmentsRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

// IsConflict matches unique (23505) and exclusion (23P01) violations, the two
// shapes a double-booked slot can take depending on the index in place.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
