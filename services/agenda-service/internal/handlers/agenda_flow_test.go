package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmonge-cr/barberia/services/agenda-service/internal/model"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/outbox"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/schedule"
)

// memTx satisfies pgx.Tx for the in-memory store; the store ignores it.
type memTx struct{}

func (memTx) Begin(ctx context.Context) (pgx.Tx, error) { return memTx{}, nil }
func (memTx) Commit(ctx context.Context) error          { return nil }
func (memTx) Rollback(ctx context.Context) error        { return nil }
func (memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (memTx) Conn() *pgx.Conn                                               { return nil }

// memStore mimics the repository including the partial unique index: one
// pending/accepted appointment per (date, time).
type memStore struct {
	nextID int64
	appts  map[int64]model.Appointment
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, appts: map[int64]model.Appointment{}}
}

func (s *memStore) slotTaken(date, slot string, excludeID int64) bool {
	for _, a := range s.appts {
		if a.ID == excludeID {
			continue
		}
		if a.Date == date && a.Time == slot &&
			(a.Status == schedule.StatusPending || a.Status == schedule.StatusAccepted) {
			return true
		}
	}
	return false
}

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) { return memTx{}, nil }

func (s *memStore) Insert(ctx context.Context, tx pgx.Tx, appt model.Appointment) (model.Appointment, error) {
	if s.slotTaken(appt.Date, appt.Time, 0) {
		return model.Appointment{}, &pgconn.PgError{Code: "23505"}
	}
	appt.ID = s.nextID
	s.nextID++
	appt.CreatedAt = time.Now()
	s.appts[appt.ID] = appt
	return appt, nil
}

func (s *memStore) ListByDate(ctx context.Context, tx pgx.Tx, date string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.appts {
		if a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) List(ctx context.Context, date string, status schedule.Status, limit int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.appts {
		if date != "" && a.Date != date {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status schedule.Status) (model.Appointment, error) {
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	a.Status = status
	s.appts[id] = a
	return a, nil
}

func (s *memStore) UpdateSchedule(ctx context.Context, tx pgx.Tx, id int64, date, slot, barber, service string) (model.Appointment, error) {
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	if s.slotTaken(date, slot, id) {
		return model.Appointment{}, &pgconn.PgError{Code: "23505"}
	}
	a.Date, a.Time, a.Barber, a.Service = date, slot, barber, service
	s.appts[id] = a
	return a, nil
}

func (s *memStore) Delete(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	delete(s.appts, id)
	return a, nil
}

// memEvents collects outbox writes so tests can assert on emitted types.
type memEvents struct {
	events []outbox.Event
}

func (m *memEvents) Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func (m *memEvents) lastType(t *testing.T) string {
	t.Helper()
	if len(m.events) == 0 {
		t.Fatal("no events emitted")
	}
	return m.events[len(m.events)-1].EventType
}

func flowHandler() (*AgendaHandler, *memStore, *memEvents) {
	store := newMemStore()
	events := &memEvents{}
	h := NewAgendaHandler(store, events, slog.New(slog.NewTextHandler(testWriter{}, nil)), Window{
		DayStart: "08:00",
		DayEnd:   "19:00",
		Interval: 30 * time.Minute,
	})
	return h, store, events
}

func book(t *testing.T, h *AgendaHandler, date, slot, client string) appointmentResponse {
	t.Helper()
	body := fmt.Sprintf(`{"date":%q,"time":%q,"client_name":%q}`, date, slot, client)
	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("book %s %s: got status %d: %s", date, slot, rec.Code, rec.Body.String())
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("book response: %v", err)
	}
	return resp
}

func slotStatus(t *testing.T, h *AgendaHandler, date, slot string) schedule.Status {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Slots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?date="+date, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: got status %d", rec.Code)
	}
	var states []schedule.SlotState
	if err := json.Unmarshal(rec.Body.Bytes(), &states); err != nil {
		t.Fatalf("slots response: %v", err)
	}
	for _, st := range states {
		if st.Time == slot {
			return st.Status
		}
	}
	t.Fatalf("slot %s not in grid", slot)
	return ""
}

func TestBook_SlotBecomesPendingAndDoubleBookConflicts(t *testing.T) {
	h, _, events := flowHandler()

	book(t, h, "2026-09-01", "09:00", "Ana")
	if got := events.lastType(t); got != outbox.EventAppointmentRequested {
		t.Errorf("event = %s, want %s", got, outbox.EventAppointmentRequested)
	}
	if got := slotStatus(t, h, "2026-09-01", "09:00"); got != schedule.StatusPending {
		t.Errorf("slot status = %s, want pending", got)
	}

	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/book",
		strings.NewReader(`{"date":"2026-09-01","time":"9:00","client_name":"Luis"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("double book: got status %d, want 409", rec.Code)
	}
}

func TestTransition_AcceptIsTerminal(t *testing.T) {
	h, _, events := flowHandler()
	appt := book(t, h, "2026-09-01", "10:00", "Ana")

	rec := httptest.NewRecorder()
	h.Transition(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"status":"accepted"}`, appt.ID))))
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: got status %d", rec.Code)
	}
	if got := events.lastType(t); got != outbox.EventAppointmentAccepted {
		t.Errorf("event = %s, want %s", got, outbox.EventAppointmentAccepted)
	}

	rec = httptest.NewRecorder()
	h.Transition(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"status":"rejected"}`, appt.ID))))
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-transition: got status %d, want 409", rec.Code)
	}
}

func TestTransition_RejectFreesSlot(t *testing.T) {
	h, _, _ := flowHandler()
	appt := book(t, h, "2026-09-01", "11:00", "Ana")

	rec := httptest.NewRecorder()
	h.Transition(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"status":"rejected"}`, appt.ID))))
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: got status %d", rec.Code)
	}

	if got := slotStatus(t, h, "2026-09-01", "11:00"); got != schedule.StatusAvailable {
		t.Errorf("slot status after reject = %s, want available", got)
	}
	book(t, h, "2026-09-01", "11:00", "Luis")
}

func TestEdit_EventTypeTracksSlotMove(t *testing.T) {
	h, _, events := flowHandler()
	appt := book(t, h, "2026-09-01", "12:00", "Ana")

	// Field-only edit: no slot move, no reschedule event.
	rec := httptest.NewRecorder()
	h.Edit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/edit",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"barber":"Luis"}`, appt.ID))))
	if rec.Code != http.StatusOK {
		t.Fatalf("field edit: got status %d: %s", rec.Code, rec.Body.String())
	}
	if got := events.lastType(t); got != outbox.EventAppointmentUpdated {
		t.Errorf("field edit event = %s, want %s", got, outbox.EventAppointmentUpdated)
	}

	// Slot move: reschedule event with the previous slot in the payload.
	rec = httptest.NewRecorder()
	h.Edit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/edit",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"time":"13:30"}`, appt.ID))))
	if rec.Code != http.StatusOK {
		t.Fatalf("slot edit: got status %d: %s", rec.Code, rec.Body.String())
	}
	if got := events.lastType(t); got != outbox.EventAppointmentRescheduled {
		t.Errorf("slot edit event = %s, want %s", got, outbox.EventAppointmentRescheduled)
	}
	var payload map[string]any
	if err := json.Unmarshal(events.events[len(events.events)-1].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["previous_time"] != "12:00" {
		t.Errorf("previous_time = %v, want 12:00", payload["previous_time"])
	}

	if got := slotStatus(t, h, "2026-09-01", "12:00"); got != schedule.StatusAvailable {
		t.Errorf("old slot = %s, want available", got)
	}
	if got := slotStatus(t, h, "2026-09-01", "13:30"); got != schedule.StatusPending {
		t.Errorf("new slot = %s, want pending", got)
	}
}

func TestEdit_OccupiedTargetConflicts(t *testing.T) {
	h, _, _ := flowHandler()
	book(t, h, "2026-09-01", "14:00", "Ana")
	other := book(t, h, "2026-09-01", "14:30", "Luis")

	rec := httptest.NewRecorder()
	h.Edit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/edit",
		strings.NewReader(fmt.Sprintf(`{"id":%d,"time":"14:00"}`, other.ID))))
	if rec.Code != http.StatusConflict {
		t.Fatalf("edit onto occupied slot: got status %d, want 409", rec.Code)
	}
}

func TestCancel_FreesSlotAndEmitsEvent(t *testing.T) {
	h, store, events := flowHandler()
	appt := book(t, h, "2026-09-01", "15:00", "Ana")

	rec := httptest.NewRecorder()
	h.Cancel(rec, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/v1/appointments/cancel?id=%d", appt.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: got status %d", rec.Code)
	}
	if got := events.lastType(t); got != outbox.EventAppointmentCancelled {
		t.Errorf("event = %s, want %s", got, outbox.EventAppointmentCancelled)
	}
	if len(store.appts) != 0 {
		t.Errorf("record count = %d, want 0 (cancel deletes)", len(store.appts))
	}
	if got := slotStatus(t, h, "2026-09-01", "15:00"); got != schedule.StatusAvailable {
		t.Errorf("slot after cancel = %s, want available", got)
	}
}
