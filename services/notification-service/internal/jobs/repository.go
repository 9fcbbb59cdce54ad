package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	otelx "github.com/dmonge-cr/barberia/libs/otel"
)

// Reminder is the snapshot of appointment fields a reminder email needs.
type Reminder struct {
	AppointmentID int64  `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	Barber        string `json:"barber"`
	Service       string `json:"service"`
}

type Job struct {
	ID             int64
	IdempotencyKey string
	AppointmentID  int64
	RemindAt       time.Time
	Reminder       Reminder
	Traceparent    string
	Tracestate     string
	Attempts       int
	MaxAttempts    int
	NextRunAt      time.Time
}

// Repository owns reminder jobs. SendHour is the local hour of the
// appointment's day at which the reminder fires.
type Repository struct {
	sendHour int
	loc      *time.Location
}

func NewRepository(sendHour int, loc *time.Location) *Repository {
	if sendHour < 0 || sendHour > 23 {
		sendHour = 7
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repository{sendHour: sendHour, loc: loc}
}

// ReminderTime computes when the reminder for an appointment day fires.
func ReminderTime(date string, sendHour int, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: %w", date, err)
	}
	return d.Add(time.Duration(sendHour) * time.Hour), nil
}

// EnqueueReminder schedules the morning-of reminder. The key carries the slot
// so a replayed acceptance is a no-op while a reschedule gets a fresh job.
func (r *Repository) EnqueueReminder(ctx context.Context, tx pgx.Tx, evt Reminder) error {
	remindAt, err := ReminderTime(evt.Date, r.sendHour, r.loc)
	if err != nil {
		return err
	}
	if now := time.Now().In(r.loc); remindAt.Before(now) {
		// Accepted after the reminder hour; fire on the next worker tick.
		remindAt = now
	}

	key := fmt.Sprintf("reminder:%d:%s %s", evt.AppointmentID, evt.Date, evt.Time)
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	// A cancelled row under the same key is revived; processed and pending
	// rows are left untouched so replays never double-send.
	_, err = tx.Exec(ctx, `
		INSERT INTO reminder_jobs (idempotency_key, appointment_id, remind_at, payload, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $3, $5, $6)
		ON CONFLICT (idempotency_key) DO UPDATE
		SET status = 'pending',
		    remind_at = EXCLUDED.remind_at,
		    next_run_at = EXCLUDED.next_run_at,
		    payload = EXCLUDED.payload,
		    attempts = 0,
		    last_error = '',
		    updated_at = now()
		WHERE reminder_jobs.status = 'cancelled'
	`, key, evt.AppointmentID, remindAt.UTC(), payload, traceparent, tracestate)
	return err
}

// CancelByAppointment retires pending reminders when the appointment goes
// away.
func (r *Repository) CancelByAppointment(ctx context.Context, tx pgx.Tx, appointmentID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return err
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, idempotency_key, appointment_id, remind_at, payload, traceparent, tracestate, attempts, max_attempts, next_run_at
		FROM reminder_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY next_run_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var raw []byte
		if err := rows.Scan(&j.ID, &j.IdempotencyKey, &j.AppointmentID, &j.RemindAt, &raw, &j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts, &j.NextRunAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &j.Reminder); err != nil {
				return nil, err
			}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'processed', updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}
