package aggregate

import (
	"testing"

	"finanzas/internal/core"
)

func TestNet(t *testing.T) {
	in := vector("100", "50", "0", "10")
	out := vector("30", "60", "5")
	net := Net(in, out)
	assertVector(t, net, vector("70", "-10", "-5", "10"))
	for i := range net {
		if !net[i].Equal(in[i].Sub(out[i])) {
			t.Fatalf("net[%d] = %s, want income - expense", i, net[i])
		}
	}
}

func TestNet_FromRecords(t *testing.T) {
	e := legacy()
	ingresos := []core.Record{
		income("2024-01-05", "100", "A", "X"),
		income("2024-03-10", "80", "B", "X"),
	}
	gastos := []core.Record{
		expense("2024-01-10", "30", "Renta", "Banco"),
		expense("2024-02-10", "20", "Luz", "Banco"),
	}
	net := Net(e.Monthly(ingresos, Filter{}), e.Monthly(gastos, Filter{}))
	assertVector(t, net, vector("70", "-20", "80"))
}

func TestMargin(t *testing.T) {
	in := vector("200", "0", "100", "3")
	out := vector("50", "10", "150", "1")
	got := Margin(in, out)

	if !got[0].Equal(dec("75")) {
		t.Errorf("margin[0] = %s, want 75", got[0])
	}
	if !got[1].IsZero() {
		t.Errorf("margin without income = %s, want 0", got[1])
	}
	if !got[2].Equal(dec("-50")) {
		t.Errorf("margin[2] = %s, want -50", got[2])
	}
	if got[3].StringFixed(4) != "66.6667" {
		t.Errorf("margin[3] = %s, want ~66.6667", got[3])
	}
	for i := 4; i < Months; i++ {
		if !got[i].IsZero() {
			t.Errorf("margin[%d] = %s, want 0", i, got[i])
		}
	}
}

func TestCompare(t *testing.T) {
	in := vector("10", "20")
	out := vector("5", "25")
	c := Compare(in, out)
	assertVector(t, c.Income, in)
	assertVector(t, c.Expense, out)
	assertVector(t, c.Net, vector("5", "-5"))
}
