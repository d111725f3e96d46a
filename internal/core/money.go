// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. The model is asked for plain numbers, but
// cells and replies are accepted with a decimal comma or a currency suffix.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var currencyMarks = strings.NewReplacer(
	"TRY", "", "TL", "", "USD", "", "EUR", "", "GBP", "",
	"₺", "", "$", "", "€", "", "£", "",
)

// ParseAmount parses a decimal amount leniently and reports absence as an
// invalid NullDecimal instead of an error.
//
// Examples:
//
//	ParseAmount("125.50")    -> 125.5
//	ParseAmount("125,50")    -> 125.5
//	ParseAmount("1.250,00")  -> 1250
//	ParseAmount("1,250.00")  -> 1250
//	ParseAmount("99.90 TL")  -> 99.9
//	ParseAmount("")          -> absent
//	ParseAmount("abc")       -> absent
//	ParseAmount("12abc")     -> absent
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	// Drop currency symbols, codes and spaces; any other letter makes the
	// value non-numeric.
	s = currencyMarks.Replace(strings.ToUpper(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && !strings.ContainsRune(".,-+", r) {
			return decimal.NullDecimal{}
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The separator that comes last is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FormatAmount renders an amount for replies: shortest exact decimal, "?" if absent.
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return "?"
	}
	return d.Decimal.String()
}
