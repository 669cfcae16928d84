package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "ingreso"
	Expense Kind = "gasto"
)

const (
	FixedExpense    = "Fijo"
	VariableExpense = "Variable"
)

// DateLayout is the calendar-date layout records are stored with.
const DateLayout = "2006-01-02"

const maxTextLen = 200

type (
	// Kind tells which collection a record belongs to.
	Kind string

	// Record is a dated monetary entry. Income records carry a Product,
	// expense records a Category (plus the optional Concept and Type).
	// Date is kept as received so malformed rows survive storage and are
	// skipped by aggregation instead of rejected on read.
	Record struct {
		ID       string              `json:"id"`
		Kind     Kind                `json:"-"`
		Date     string              `json:"fecha"`
		Amount   decimal.NullDecimal `json:"monto"`
		Platform string              `json:"plataforma"`
		Product  string              `json:"producto,omitempty"`
		Category string              `json:"categoria,omitempty"`
		Concept  string              `json:"concepto,omitempty"`
		Type     string              `json:"tipo,omitempty"`
	}
)

var (
	ErrInvalidKind     = errors.New("invalid record kind")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingAmount   = errors.New("missing amount")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyProduct    = errors.New("empty product")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidType     = errors.New("invalid expense type")
	ErrFieldTooLong    = errors.New("field too long")
	ErrUnexpectedField = errors.New("field not allowed for record kind")
)

// ParseKind accepts both the singular kind and the collection name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ingreso", "ingresos", "income":
		return Income, nil
	case "gasto", "gastos", "expense", "expenses":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Collection returns the plural collection name ("ingresos" or "gastos").
func (k Kind) Collection() string {
	return string(k) + "s"
}

func (k Kind) String() string {
	return string(k)
}

// ParseDate reads a stored date. It accepts YYYY-MM-DD and RFC3339
// timestamps; for the latter the calendar date in the timestamp's own
// offset is kept. The result is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Tag returns the record's grouping tag: the product for income, the
// category for expenses.
func (r Record) Tag() string {
	if r.Kind == Expense {
		return r.Category
	}
	return r.Product
}

// Month returns the stored date as YYYY-MM, or "" when the date does not parse.
func (r Record) Month() string {
	t, ok := ParseDate(r.Date)
	if !ok {
		return ""
	}
	return t.Format("2006-01")
}

// Normalize trims every text field and canonicalises the date when it parses.
func (r Record) Normalize() Record {
	r.ID = strings.TrimSpace(r.ID)
	r.Date = strings.TrimSpace(r.Date)
	if t, ok := ParseDate(r.Date); ok {
		r.Date = t.Format(DateLayout)
	}
	r.Platform = strings.TrimSpace(r.Platform)
	r.Product = strings.TrimSpace(r.Product)
	r.Category = strings.TrimSpace(r.Category)
	r.Concept = strings.TrimSpace(r.Concept)
	r.Type = strings.TrimSpace(r.Type)
	return r
}

// Validate checks a record coming from a create or update request.
// Aggregation never calls it: stored records are tolerated as they are.
func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if _, ok := ParseDate(r.Date); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.Date)
	}
	if !r.Amount.Valid {
		return ErrMissingAmount
	}
	if r.Amount.Decimal.IsNegative() {
		return ErrNegativeAmount
	}
	for _, v := range []string{r.Platform, r.Product, r.Category, r.Concept} {
		if len(v) > maxTextLen {
			return fmt.Errorf("%w (max %d characters)", ErrFieldTooLong, maxTextLen)
		}
	}

	switch r.Kind {
	case Income:
		if strings.TrimSpace(r.Product) == "" {
			return ErrEmptyProduct
		}
		if r.Category != "" || r.Concept != "" || r.Type != "" {
			return ErrUnexpectedField
		}
	case Expense:
		if strings.TrimSpace(r.Category) == "" {
			return ErrEmptyCategory
		}
		if r.Product != "" {
			return ErrUnexpectedField
		}
		if r.Type != "" && r.Type != FixedExpense && r.Type != VariableExpense {
			return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
		}
	}
	return nil
}
