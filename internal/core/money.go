// Package core provides money parsing and the combination search engine.
//
// This file contains functions for parsing monetary amounts from free-form
// text and formatting cents for display and export.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const displayCurrency = "USD"

// ParseAmount converts free-form amount text to signed cents.
//
// Currency symbols, thousands separators, letters and whitespace are ignored.
// A leading '-' or a value wrapped entirely in parentheses is negative. The
// amount is rounded to the nearest cent with halves going away from zero,
// computed on the exact decimal value.
//
// Examples:
//
//	ParseAmount("($1,234.56)") -> -123456, nil
//	ParseAmount("1.005")       -> 101, nil
//	ParseAmount("USD 12")      -> 1200, nil
//	ParseAmount("abc")         -> 0, ErrNotANumber
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrNotANumber
	}
	negative := strings.HasPrefix(s, "-") ||
		(len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))

	// Parentheses go with everything else that is not a digit or a dot.
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, ErrNotANumber
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrNotANumber
	}
	cents := value.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrNotANumber
	}

	c := cents.IntPart()
	if negative {
		c = -c
	}
	return c, nil
}

// FormatCents renders cents for display, e.g. "-$1,234.56" or "$0.00".
func FormatCents(cents int64) string {
	return money.New(cents, displayCurrency).Display()
}

// FormatPlain renders cents as an undecorated decimal, e.g. "-1234.56".
// The output round-trips through ParseAmount.
func FormatPlain(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
