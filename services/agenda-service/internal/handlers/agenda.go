package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/services/agenda-service/internal/model"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/outbox"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/schedule"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/storage"
)

// Window is the shop's daily operating window from which the slot grid is
// derived. RejectedBlocks keeps the legacy behavior where a rejected
// appointment still occupies its slot.
type Window struct {
	DayStart       string
	DayEnd         string
	Interval       time.Duration
	RejectedBlocks bool
}

// Grid materializes the day's bookable slot times.
func (w Window) Grid() ([]string, error) {
	return schedule.SlotGrid(w.DayStart, w.DayEnd, w.Interval)
}

// AppointmentStore is the storage surface the handler needs; satisfied by
// storage.AppointmentsRepository.
type AppointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Insert(ctx context.Context, tx pgx.Tx, appt model.Appointment) (model.Appointment, error)
	ListByDate(ctx context.Context, tx pgx.Tx, date string) ([]model.Appointment, error)
	List(ctx context.Context, date string, status schedule.Status, limit int) ([]model.Appointment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status schedule.Status) (model.Appointment, error)
	UpdateSchedule(ctx context.Context, tx pgx.Tx, id int64, date, slot, barber, service string) (model.Appointment, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error)
}

// EventStore records domain events inside the mutation's transaction;
// satisfied by outbox.Repository.
type EventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type AgendaHandler struct {
	repo       AppointmentStore
	outboxRepo EventStore
	logger     *slog.Logger
	window     Window
}

func NewAgendaHandler(repo AppointmentStore, outboxRepo EventStore, logger *slog.Logger, window Window) *AgendaHandler {
	return &AgendaHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		logger:     logger,
		window:     window,
	}
}

type bookRequest struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	ClientName string `json:"client_name"`
	Barber     string `json:"barber"`
	Service    string `json:"service"`
}

type transitionRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type editRequest struct {
	ID      int64   `json:"id"`
	Date    *string `json:"date"`
	Time    *string `json:"time"`
	Barber  *string `json:"barber"`
	Service *string `json:"service"`
}

type appointmentResponse struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	ClientName string `json:"client_name"`
	Barber     string `json:"barber"`
	Service    string `json:"service"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func toResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:         appt.ID,
		Date:       appt.Date,
		Time:       appt.Time,
		ClientName: appt.ClientName,
		Barber:     appt.Barber,
		Service:    appt.Service,
		Status:     string(appt.Status),
		CreatedAt:  appt.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// normalizeDate accepts only YYYY-MM-DD civil dates.
func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d.Format("2006-01-02"), nil
}

// Slots serves the full day grid with each slot's resolved status.
func (h *AgendaHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grid, err := h.window.Grid()
	if err != nil {
		h.logger.Error("slot grid misconfigured", "err", err)
		http.Error(w, "slot grid misconfigured", http.StatusInternalServerError)
		return
	}

	appts, err := h.repo.ListByDate(r.Context(), nil, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	states, conflicts := schedule.ResolveDay(grid, toEntries(appts), h.window.RejectedBlocks)
	h.logConflicts(date, conflicts)

	writeJSON(w, http.StatusOK, states)
}

// Book creates a pending appointment on an available slot. The availability
// check inside the transaction is advisory; the slot uniqueness index is what
// actually serializes two racing bookings, surfacing as a conflict here.
func (h *AgendaHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	date, err := normalizeDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slot, err := schedule.NormalizeClock(req.Time)
	if err != nil {
		http.Error(w, "invalid time format", http.StatusBadRequest)
		return
	}
	clientName := strings.TrimSpace(req.ClientName)
	if clientName == "" {
		http.Error(w, "client_name is required", http.StatusBadRequest)
		return
	}

	grid, err := h.window.Grid()
	if err != nil {
		h.logger.Error("slot grid misconfigured", "err", err)
		http.Error(w, "slot grid misconfigured", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := h.repo.ListByDate(ctx, tx, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	if !schedule.SlotIsAvailable(grid, toEntries(existing), slot, h.window.RejectedBlocks) {
		http.Error(w, "slot unavailable", http.StatusConflict)
		return
	}

	appt, err := h.repo.Insert(ctx, tx, model.Appointment{
		Date:       date,
		Time:       slot,
		ClientName: clientName,
		Barber:     strings.TrimSpace(req.Barber),
		Service:    strings.TrimSpace(req.Service),
		Status:     schedule.StatusPending,
	})
	if err != nil {
		if storage.IsConflict(err) {
			// Lost the race to a concurrent booking.
			http.Error(w, "slot unavailable", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	if err := h.emitAppointmentEvent(ctx, tx, outbox.EventAppointmentRequested, appt, nil); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(appt))
}

// Transition applies a staff decision. Only pending appointments move;
// accepted and rejected are terminal.
func (h *AgendaHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	newStatus := schedule.Status(strings.TrimSpace(req.Status))
	if newStatus != schedule.StatusAccepted && newStatus != schedule.StatusRejected {
		http.Error(w, "status must be accepted or rejected", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status != schedule.StatusPending {
		http.Error(w, "invalid transition", http.StatusConflict)
		return
	}

	updated, err := h.repo.UpdateStatus(ctx, tx, appt.ID, newStatus)
	if err != nil {
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		return
	}

	eventType := outbox.EventAppointmentAccepted
	if newStatus == schedule.StatusRejected {
		eventType = outbox.EventAppointmentRejected
	}
	if err := h.emitAppointmentEvent(ctx, tx, eventType, updated, nil); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

// Edit reschedules or reassigns an appointment without changing its identity.
// Moving to another slot re-validates availability against the target day,
// excluding the appointment's own row.
func (h *AgendaHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	date, slot := appt.Date, appt.Time
	if req.Date != nil {
		if date, err = normalizeDate(*req.Date); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Time != nil {
		if slot, err = schedule.NormalizeClock(*req.Time); err != nil {
			http.Error(w, "invalid time format", http.StatusBadRequest)
			return
		}
	}
	barber := appt.Barber
	if req.Barber != nil {
		barber = strings.TrimSpace(*req.Barber)
	}
	service := appt.Service
	if req.Service != nil {
		service = strings.TrimSpace(*req.Service)
	}

	slotMoved := date != appt.Date || slot != appt.Time
	if slotMoved {
		grid, err := h.window.Grid()
		if err != nil {
			h.logger.Error("slot grid misconfigured", "err", err)
			http.Error(w, "slot grid misconfigured", http.StatusInternalServerError)
			return
		}
		target, err := h.repo.ListByDate(ctx, tx, date)
		if err != nil {
			http.Error(w, "failed to load appointments", http.StatusInternalServerError)
			return
		}
		others := make([]model.Appointment, 0, len(target))
		for _, other := range target {
			if other.ID != appt.ID {
				others = append(others, other)
			}
		}
		if !schedule.SlotIsAvailable(grid, toEntries(others), slot, h.window.RejectedBlocks) {
			http.Error(w, "slot unavailable", http.StatusConflict)
			return
		}
	}

	updated, err := h.repo.UpdateSchedule(ctx, tx, appt.ID, date, slot, barber, service)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "slot unavailable", http.StatusConflict)
			return
		}
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		return
	}

	// A reschedule moves the slot; a field-only edit (barber, service) is a
	// plain update so consumers never see a same-slot "move".
	eventType := outbox.EventAppointmentUpdated
	var extra map[string]any
	if slotMoved {
		eventType = outbox.EventAppointmentRescheduled
		extra = map[string]any{
			"previous_date": appt.Date,
			"previous_time": appt.Time,
		}
	}
	if err := h.emitAppointmentEvent(ctx, tx, eventType, updated, extra); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

// Cancel deletes the appointment record; the slot frees immediately.
func (h *AgendaHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleted, err := h.repo.Delete(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	if err := h.emitAppointmentEvent(ctx, tx, outbox.EventAppointmentCancelled, deleted, nil); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "cancelled": true})
}

// List is the admin view: appointments filtered by date and/or status.
func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date != "" {
		var err error
		if date, err = normalizeDate(date); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	status := schedule.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !schedule.ValidStatus(status) {
		http.Error(w, "unknown status filter", http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	appts, err := h.repo.List(r.Context(), date, status, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toResponse(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AgendaHandler) emitAppointmentEvent(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment, extra map[string]any) error {
	payload := map[string]any{
		"appointment_id": appt.ID,
		"date":           appt.Date,
		"time":           appt.Time,
		"client_name":    appt.ClientName,
		"barber":         appt.Barber,
		"service":        appt.Service,
		"status":         string(appt.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(appt.ID, 10),
		EventType:     eventType,
		Payload:       raw,
	})
}

func (h *AgendaHandler) logConflicts(date string, conflicts []schedule.Conflict) {
	for _, c := range conflicts {
		h.logger.Warn("data integrity conflict: two active appointments share a slot",
			"date", date,
			"time", c.Time,
			"kept_id", c.KeptID,
			"ignored_id", c.IgnoredID,
		)
	}
}

func toEntries(appts []model.Appointment) []schedule.Entry {
	entries := make([]schedule.Entry, 0, len(appts))
	for _, appt := range appts {
		entries = append(entries, schedule.Entry{ID: appt.ID, Time: appt.Time, Status: appt.Status})
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
