// Package report builds the period summary the original back office showed in
// its general report tab.
package report

import (
	"sort"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

type BarberCount struct {
	Barber string `json:"barber"`
	Count  int    `json:"count"`
}

type Summary struct {
	From                 string        `json:"from"`
	To                   string        `json:"to"`
	HaircutCount         int           `json:"haircut_count"`
	HaircutRevenue       float64       `json:"haircut_revenue"`
	HaircutsByBarber     []BarberCount `json:"haircuts_by_barber"`
	IncomeTotal          float64       `json:"income_total"`
	ExpenseTotal         float64       `json:"expense_total"`
	Balance              float64       `json:"balance"`
	AcceptedAppointments int           `json:"accepted_appointments"`
	AppointmentsByBarber []BarberCount `json:"appointments_by_barber"`
}

// Build aggregates the period's rows into the report summary. Haircut prices
// count toward revenue but not the ledger; the ledger is entered by hand, as
// in the original books.
func Build(from, to string, haircuts []model.Haircut, ledger []model.LedgerEntry, apptCounts map[string]int) Summary {
	s := Summary{From: from, To: to}

	byBarber := make(map[string]int)
	for _, h := range haircuts {
		s.HaircutCount++
		s.HaircutRevenue += h.Price
		byBarber[h.Barber]++
	}
	s.HaircutsByBarber = sortedCounts(byBarber)

	for _, e := range ledger {
		switch e.Kind {
		case model.KindIncome:
			s.IncomeTotal += e.Amount
		case model.KindExpense:
			s.ExpenseTotal += e.Amount
		}
	}
	s.Balance = s.IncomeTotal - s.ExpenseTotal

	for _, n := range apptCounts {
		s.AcceptedAppointments += n
	}
	s.AppointmentsByBarber = sortedCounts(apptCounts)

	return s
}

// sortedCounts orders descending by count, then by name for a stable report.
func sortedCounts(m map[string]int) []BarberCount {
	out := make([]BarberCount, 0, len(m))
	for barber, n := range m {
		out = append(out, BarberCount{Barber: barber, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Barber < out[j].Barber
	})
	return out
}
