package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/storage"
)

// LedgerHandler serves one kind of ledger entry; the same handler type backs
// both the incomes and the expenses routes.
type LedgerHandler struct {
	repo   *storage.LedgerRepository
	kind   model.LedgerKind
	noun   string
	logger *slog.Logger
}

func NewLedgerHandler(repo *storage.LedgerRepository, kind model.LedgerKind, logger *slog.Logger) *LedgerHandler {
	noun := "income"
	if kind == model.KindExpense {
		noun = "expense"
	}
	return &LedgerHandler{repo: repo, kind: kind, noun: noun, logger: logger}
}

type ledgerRequest struct {
	ID      int64   `json:"id"`
	Date    string  `json:"date"`
	Concept string  `json:"concept"`
	Amount  float64 `json:"amount"`
	Notes   string  `json:"notes"`
}

type ledgerResponse struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	Concept   string  `json:"concept"`
	Amount    float64 `json:"amount"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

func toLedgerResponse(e model.LedgerEntry) ledgerResponse {
	return ledgerResponse{
		ID:        e.ID,
		Date:      e.Date,
		Concept:   e.Concept,
		Amount:    e.Amount,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *LedgerHandler) toModel(req ledgerRequest) (model.LedgerEntry, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	e := model.LedgerEntry{
		ID:      req.ID,
		Kind:    h.kind,
		Date:    date,
		Concept: strings.TrimSpace(req.Concept),
		Amount:  req.Amount,
		Notes:   strings.TrimSpace(req.Notes),
	}
	if e.Concept == "" {
		return model.LedgerEntry{}, errRequired("concept")
	}
	if e.Amount <= 0 {
		return model.LedgerEntry{}, fmt.Errorf("amount must be positive")
	}
	return e, nil
}

func (h *LedgerHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LedgerHandler) list(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := optionalDate(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := h.repo.List(r.Context(), h.kind, from, to, 0)
	if err != nil {
		http.Error(w, "failed to list "+h.noun+"s", http.StatusInternalServerError)
		return
	}
	items := make([]ledgerResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toLedgerResponse(e))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *LedgerHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ledgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	e, err := h.toModel(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.repo.Insert(r.Context(), e)
	if err != nil {
		http.Error(w, "failed to create "+h.noun, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerResponse(created))
}

func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ledgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	e, err := h.toModel(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.repo.Update(r.Context(), e)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, h.noun+" not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update "+h.noun, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerResponse(updated))
}

func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := queryID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), h.kind, id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, h.noun+" not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete "+h.noun, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
