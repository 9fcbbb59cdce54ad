package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testHandler() *AgendaHandler {
	return NewAgendaHandler(nil, nil, slog.New(slog.NewTextHandler(testWriter{}, nil)), Window{
		DayStart: "08:00",
		DayEnd:   "19:00",
		Interval: 30 * time.Minute,
	})
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSlots_RejectsBadDate(t *testing.T) {
	h := testHandler()
	for _, date := range []string{"", "2026-13-01", "01-02-2026", "not-a-date"} {
		rec := httptest.NewRecorder()
		h.Slots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?date="+date, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("date %q: got status %d, want 400", date, rec.Code)
		}
	}
}

func TestSlots_MethodNotAllowed(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	h.Slots(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/slots?date=2026-09-01", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("got status %d, want 405", rec.Code)
	}
}

func TestBook_RejectsInvalidInput(t *testing.T) {
	h := testHandler()
	cases := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"missing date", `{"time":"09:00","client_name":"Ana"}`},
		{"bad time", `{"date":"2026-09-01","time":"25:00","client_name":"Ana"}`},
		{"blank client", `{"date":"2026-09-01","time":"09:00","client_name":"   "}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestTransition_RejectsInvalidInput(t *testing.T) {
	h := testHandler()
	cases := []struct {
		name string
		body string
	}{
		{"missing id", `{"status":"accepted"}`},
		{"unknown status", `{"id":7,"status":"done"}`},
		{"pending not a target", `{"id":7,"status":"pending"}`},
		{"available not a target", `{"id":7,"status":"available"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.Transition(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestEdit_RequiresID(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	h.Edit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/edit", strings.NewReader(`{"time":"10:00"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestCancel_RequiresNumericID(t *testing.T) {
	h := testHandler()
	for _, id := range []string{"", "abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		h.Cancel(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/cancel?id="+id, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: got status %d, want 400", id, rec.Code)
		}
	}
}

func TestList_RejectsUnknownStatusFilter(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments?status=confirmed", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestNormalizeDate(t *testing.T) {
	got, err := normalizeDate(" 2026-09-01 ")
	if err != nil || got != "2026-09-01" {
		t.Fatalf("got (%q, %v), want (2026-09-01, nil)", got, err)
	}
	if _, err := normalizeDate("2026-02-30"); err == nil {
		t.Fatal("expected error for impossible date")
	}
}
