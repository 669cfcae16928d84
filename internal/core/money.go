// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// or read from spreadsheets into exact decimals.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount to a decimal without rounding.
//
// It accepts dot (12.34) and comma (12,34) decimal separators and tolerates a
// thousands separator of the other kind (1.234,56 or 1,234.56). Currency
// symbols and blanks are ignored. The sign is preserved; callers decide
// whether negatives are acceptable.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("€ 7")      -> 7
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '€', '$':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NullAmount wraps a decimal as a present amount.
func NullAmount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
