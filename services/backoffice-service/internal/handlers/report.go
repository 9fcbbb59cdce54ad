package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/report"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/storage"
)

type ReportHandler struct {
	haircuts *storage.HaircutsRepository
	ledger   *storage.LedgerRepository
	accepted *storage.AcceptedCacheRepository
	logger   *slog.Logger
}

func NewReportHandler(haircuts *storage.HaircutsRepository, ledger *storage.LedgerRepository, accepted *storage.AcceptedCacheRepository, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{haircuts: haircuts, ledger: ledger, accepted: accepted, logger: logger}
}

// Summary aggregates the period's activity: haircuts, ledger totals and the
// accepted appointments mirrored from the agenda.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
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

	ctx := r.Context()
	haircuts, err := h.haircuts.List(ctx, from, to, 10000)
	if err != nil {
		http.Error(w, "failed to load haircuts", http.StatusInternalServerError)
		return
	}
	incomes, err := h.ledger.List(ctx, model.KindIncome, from, to, 10000)
	if err != nil {
		http.Error(w, "failed to load incomes", http.StatusInternalServerError)
		return
	}
	expenses, err := h.ledger.List(ctx, model.KindExpense, from, to, 10000)
	if err != nil {
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	apptCounts, err := h.accepted.CountByBarber(ctx, from, to)
	if err != nil {
		http.Error(w, "failed to load appointment counts", http.StatusInternalServerError)
		return
	}

	ledger := append(incomes, expenses...)
	writeJSON(w, http.StatusOK, report.Build(from, to, haircuts, ledger, apptCounts))
}
