package report

import (
	"testing"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

func TestBuild_EmptyPeriod(t *testing.T) {
	s := Build("2026-09-01", "2026-09-30", nil, nil, nil)
	if s.HaircutCount != 0 || s.IncomeTotal != 0 || s.ExpenseTotal != 0 || s.Balance != 0 {
		t.Fatalf("empty period produced non-zero summary: %+v", s)
	}
	if len(s.HaircutsByBarber) != 0 || len(s.AppointmentsByBarber) != 0 {
		t.Fatal("empty period produced per-barber rows")
	}
}

func TestBuild_Totals(t *testing.T) {
	haircuts := []model.Haircut{
		{Barber: "Luis", Price: 5000},
		{Barber: "Luis", Price: 6000},
		{Barber: "Marco", Price: 5500},
	}
	ledger := []model.LedgerEntry{
		{Kind: model.KindIncome, Amount: 20000},
		{Kind: model.KindIncome, Amount: 5000},
		{Kind: model.KindExpense, Amount: 8000},
	}
	appts := map[string]int{"Luis": 4, "Marco": 2, "": 1}

	s := Build("2026-09-01", "2026-09-30", haircuts, ledger, appts)

	if s.HaircutCount != 3 {
		t.Errorf("haircut count = %d, want 3", s.HaircutCount)
	}
	if s.HaircutRevenue != 16500 {
		t.Errorf("haircut revenue = %v, want 16500", s.HaircutRevenue)
	}
	if s.IncomeTotal != 25000 || s.ExpenseTotal != 8000 || s.Balance != 17000 {
		t.Errorf("ledger totals = %v/%v/%v, want 25000/8000/17000", s.IncomeTotal, s.ExpenseTotal, s.Balance)
	}
	if s.AcceptedAppointments != 7 {
		t.Errorf("accepted appointments = %d, want 7", s.AcceptedAppointments)
	}
}

func TestBuild_OrdersBarbersByCountThenName(t *testing.T) {
	haircuts := []model.Haircut{
		{Barber: "Marco"},
		{Barber: "Ana"},
		{Barber: "Luis"},
		{Barber: "Luis"},
	}
	s := Build("", "", haircuts, nil, nil)

	got := s.HaircutsByBarber
	if len(got) != 3 {
		t.Fatalf("got %d barbers, want 3", len(got))
	}
	if got[0].Barber != "Luis" || got[0].Count != 2 {
		t.Errorf("first = %+v, want Luis/2", got[0])
	}
	// Tied counts fall back to name order.
	if got[1].Barber != "Ana" || got[2].Barber != "Marco" {
		t.Errorf("tie order = %s, %s; want Ana, Marco", got[1].Barber, got[2].Barber)
	}
}
