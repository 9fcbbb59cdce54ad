package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/libs/db"
	otelx "github.com/dmonge-cr/barberia/libs/otel"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/email"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/outbox"
)

// Worker delivers due reminder emails. Jobs are claimed with row locks, so
// multiple replicas can run the loop without double-sending.
type Worker struct {
	pool       *db.Pool
	repo       *Repository
	outbox     *outbox.Repository
	sender     email.Sender
	logger     *slog.Logger
	adminEmail string
	interval   time.Duration
	batchSize  int
	backoff    time.Duration
}

type WorkerConfig struct {
	AdminEmail string
	Interval   time.Duration
	BatchSize  int
	Backoff    time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository, sender email.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	return &Worker{
		pool:       pool,
		repo:       repo,
		outbox:     outboxRepo,
		sender:     sender,
		logger:     logger,
		adminEmail: cfg.AdminEmail,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		backoff:    cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

// ReminderMessage renders the morning-of email for one job.
func ReminderMessage(rem Reminder) (subject, body string) {
	who := rem.ClientName
	if who == "" {
		who = "a client"
	}
	subject = fmt.Sprintf("Reminder: %s today at %s", who, rem.Time)
	body = fmt.Sprintf("Today %s, %s has an appointment at %s.", rem.Date, who, rem.Time)
	if rem.Barber != "" {
		body += fmt.Sprintf(" Barber: %s.", rem.Barber)
	}
	if rem.Service != "" {
		body += fmt.Sprintf(" Service: %s.", rem.Service)
	}
	return subject, body
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	var sent []int64
	for _, job := range due {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)
		subject, body := ReminderMessage(job.Reminder)

		if err := w.sender.Send(w.adminEmail, subject, body); err != nil {
			w.logger.Error("reminder send failed", "err", err, "appointment_id", job.AppointmentID)
			attempts := job.Attempts + 1
			nextRunAt := time.Now().UTC().Add(w.backoff)
			if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, nextRunAt, err.Error()); err != nil {
				return err
			}
			if attempts >= job.MaxAttempts {
				if err := w.enqueueDLQ(jobCtx, tx, job, "max attempts reached"); err != nil {
					return err
				}
			}
			continue
		}
		sent = append(sent, job.ID)
	}

	if err := w.repo.MarkProcessed(ctx, tx, sent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (w *Worker) enqueueDLQ(ctx context.Context, tx pgx.Tx, job Job, reason string) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": job.AppointmentID,
		"remind_at":      job.RemindAt.UTC().Format(time.RFC3339),
		"recipient":      w.adminEmail,
		"error_reason":   reason,
		"failed_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return w.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "reminder_job",
		AggregateID:   strconv.FormatInt(job.AppointmentID, 10),
		EventType:     outbox.EventReminderDLQ,
		Payload:       payload,
	})
}
