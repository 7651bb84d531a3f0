// Package core holds the ledger domain: entities, money arithmetic,
// the recurrence calculator, and the shared error taxonomy.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an exact monetary amount in currency minor units (cents).
// All ledger arithmetic happens on int64 cents so thousands of
// accumulating operations cannot drift the way binary floats do.
type Money struct {
	Cents int64
}

// Validate rejects non-positive amounts. Entry and goal amounts are
// always positive; sign is carried by the entry kind or transaction
// type, never by the amount itself.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// Add returns m shifted by the given signed cents. Balances use this
// directly with Entry.SignedCents.
func (m Money) Add(cents int64) Money {
	return Money{Cents: m.Cents + cents}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// String formats the amount as a plain decimal with two places,
// e.g. -1234 -> "-12.34". Display only; calculations stay in cents.
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and
// comma (12,34) separators and only positive amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.346") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: signed amounts not allowed", ErrValidation)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, fmt.Errorf("%w: amount overflows", ErrValidation)
	}
	// First two fractional digits, then half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return cents, nil
}
