package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/email"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/jobs"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/outbox"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/storage"
)

// Notifier emails the shop administrator about agenda events and maintains
// the reminder jobs that acceptance creates and cancellation retires.
type Notifier struct {
	pool       *db.Pool
	sender     email.Sender
	records    *storage.Repository
	outboxRepo *outbox.Repository
	jobsRepo   *jobs.Repository
	logger     *slog.Logger
	adminEmail string
}

func New(pool *db.Pool, sender email.Sender, records *storage.Repository, outboxRepo *outbox.Repository, jobsRepo *jobs.Repository, logger *slog.Logger, adminEmail string) *Notifier {
	return &Notifier{
		pool:       pool,
		sender:     sender,
		records:    records,
		outboxRepo: outboxRepo,
		jobsRepo:   jobsRepo,
		logger:     logger,
		adminEmail: adminEmail,
	}
}

// HandleEvent processes one deduped agenda event: send the admin email,
// record the outcome, and adjust reminder jobs for the appointment.
func (n *Notifier) HandleEvent(ctx context.Context, eventType string, raw []byte) error {
	evt, err := ParseAppointmentEvent(raw)
	if err != nil {
		// Malformed payloads are logged and dropped; retrying cannot fix them.
		n.logger.Error("invalid event payload", "err", err, "event_type", eventType)
		return nil
	}

	subject, body := Compose(eventType, evt)
	sendErr := n.sender.Send(n.adminEmail, subject, body)

	status := "sent"
	lastError := ""
	if sendErr != nil {
		status = "failed"
		lastError = sendErr.Error()
		n.logger.Error("admin email failed", "err", sendErr, "appointment_id", evt.AppointmentID)
	}

	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Record and result event commit together; a failure leaves neither.
	if err := n.records.Insert(ctx, tx, storage.Notification{
		AppointmentID: evt.AppointmentID,
		EventType:     eventType,
		Channel:       "email",
		Recipient:     n.adminEmail,
		Subject:       subject,
		Status:        status,
		LastError:     lastError,
	}); err != nil {
		return err
	}

	resultType := outbox.EventNotificationSent
	if sendErr != nil {
		resultType = outbox.EventNotificationFailed
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": evt.AppointmentID,
		"event_type":     eventType,
		"recipient":      n.adminEmail,
		"subject":        subject,
		"error":          lastError,
	})
	if err != nil {
		return err
	}
	if err := n.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   strconv.FormatInt(evt.AppointmentID, 10),
		EventType:     resultType,
		Payload:       payload,
	}); err != nil {
		return err
	}

	reminder := jobs.Reminder{
		AppointmentID: evt.AppointmentID,
		Date:          evt.Date,
		Time:          evt.Time,
		ClientName:    evt.ClientName,
		Barber:        evt.Barber,
		Service:       evt.Service,
	}
	switch eventType {
	case "agenda.appointment.accepted.v1":
		if err := n.jobsRepo.EnqueueReminder(ctx, tx, reminder); err != nil {
			return err
		}
	case "agenda.appointment.cancelled.v1", "agenda.appointment.rejected.v1":
		if err := n.jobsRepo.CancelByAppointment(ctx, tx, evt.AppointmentID); err != nil {
			return err
		}
	case "agenda.appointment.rescheduled.v1":
		// The reminder should fire on the new morning; replace the job. A
		// payload without a real slot move is left alone: cancelling and
		// re-enqueueing under the same idempotency key would hit the
		// cancelled row and drop the reminder.
		if !evt.SlotChanged() {
			break
		}
		if err := n.jobsRepo.CancelByAppointment(ctx, tx, evt.AppointmentID); err != nil {
			return err
		}
		if evt.Status == "accepted" {
			if err := n.jobsRepo.EnqueueReminder(ctx, tx, reminder); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
