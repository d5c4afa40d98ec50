// Package amount normalizes currency text into signed decimal amounts
package amount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	groupedNumber = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
	plainNumber   = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
)

// currencySymbols are stripped wherever they appear
const currencySymbols = "$€£¥₹₩₽¢"

// ParseError reports text that is not a number after normalization
type ParseError struct {
	Row   int
	Field string
	Input string
}

// Error names the row and field when the caller supplied them
func (e *ParseError) Error() string {
	label := e.Field
	if label == "" {
		label = "amount"
	}
	label = strings.ReplaceAll(label, "_", " ")
	if e.Row > 0 {
		return fmt.Sprintf("Row %d: invalid %s '%s'", e.Row, label, e.Input)
	}
	return fmt.Sprintf("invalid %s '%s'", label, e.Input)
}

// Parse converts raw currency text into a signed decimal.
// Blank input is zero. "(1,250.00)" is negative
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}

	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	switch {
	case strings.HasPrefix(s, "-"):
		if negative {
			return decimal.Zero, &ParseError{Input: raw}
		}
		negative = true
		s = strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "+"):
		s = strings.TrimSpace(s[1:])
	}

	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return decimal.Zero, &ParseError{Input: raw}
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if !plainNumber.MatchString(s) {
		return decimal.Zero, &ParseError{Input: raw}
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, &ParseError{Input: raw}
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseField is Parse with the row and field recorded on failure
func ParseField(row int, field, raw string) (decimal.Decimal, error) {
	d, err := Parse(raw)
	if err != nil {
		return decimal.Zero, &ParseError{Row: row, Field: field, Input: raw}
	}
	return d, nil
}
