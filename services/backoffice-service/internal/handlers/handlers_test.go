package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

func TestHaircuts_RejectsInvalidInput(t *testing.T) {
	h := NewHaircutsHandler(nil, testLogger())
	cases := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"bad date", `{"date":"01/02/2026","barber":"Luis","price":5000}`},
		{"missing barber", `{"date":"2026-09-01","price":5000}`},
		{"negative price", `{"date":"2026-09-01","barber":"Luis","price":-1}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/haircuts", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestProducts_RejectsInvalidInput(t *testing.T) {
	h := NewProductsHandler(nil, testLogger())
	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"stock":3,"unit_price":2500}`},
		{"negative stock", `{"name":"Pomada","stock":-1,"unit_price":2500}`},
		{"negative price", `{"name":"Pomada","stock":3,"unit_price":-2500}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestProducts_AdjustStockValidation(t *testing.T) {
	h := NewProductsHandler(nil, testLogger())
	for _, body := range []string{`{"delta":5}`, `{"id":3,"delta":0}`} {
		rec := httptest.NewRecorder()
		h.AdjustStock(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/stock", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: got status %d, want 400", body, rec.Code)
		}
	}
}

func TestLedger_RejectsInvalidInput(t *testing.T) {
	for _, kind := range []model.LedgerKind{model.KindIncome, model.KindExpense} {
		h := NewLedgerHandler(nil, kind, testLogger())
		cases := []struct {
			name string
			body string
		}{
			{"missing concept", `{"date":"2026-09-01","amount":1000}`},
			{"zero amount", `{"date":"2026-09-01","concept":"alquiler","amount":0}`},
			{"bad date", `{"date":"hoy","concept":"alquiler","amount":1000}`},
		}
		for _, tc := range cases {
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s/%s: got status %d, want 400", kind, tc.name, rec.Code)
			}
		}
	}
}

func TestReport_RejectsBadRange(t *testing.T) {
	h := NewReportHandler(nil, nil, nil, testLogger())
	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/summary?from=ayer", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}
