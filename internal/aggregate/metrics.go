package aggregate

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Net returns income minus expense, month by month.
func Net(income, expense MonthlyVector) MonthlyVector {
	var v MonthlyVector
	for i := range v {
		v[i] = income[i].Sub(expense[i])
	}
	return v
}

// Margin returns the net result as a percentage of income, month by month.
// Months without income have a margin of zero. Division keeps
// decimal.DivisionPrecision digits.
func Margin(income, expense MonthlyVector) MonthlyVector {
	net := Net(income, expense)
	var v MonthlyVector
	for i := range v {
		if income[i].IsZero() {
			continue
		}
		v[i] = net[i].Mul(hundred).Div(income[i])
	}
	return v
}

// Comparison pairs the income and expense vectors of the same year.
type Comparison struct {
	Income  MonthlyVector `json:"ingresos"`
	Expense MonthlyVector `json:"gastos"`
	Net     MonthlyVector `json:"utilidad"`
}

func Compare(income, expense MonthlyVector) Comparison {
	return Comparison{
		Income:  income,
		Expense: expense,
		Net:     Net(income, expense),
	}
}
