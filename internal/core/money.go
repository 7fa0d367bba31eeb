package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal amount string to cents. Both dot and
// comma decimal separators are accepted; the third decimal digit is rounded
// half-up. Negative and malformed amounts are rejected, zero is allowed.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, &ValidationError{Field: "amount", Message: "amount must be a non-negative decimal"}
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, &ValidationError{Field: "amount", Message: "amount must be a non-negative decimal"}
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, &ValidationError{Field: "amount", Message: "amount must be a non-negative decimal"}
		}
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > (1<<63-1)/100 {
		return 0, &ValidationError{Field: "amount", Message: "amount out of range"}
	}

	var cents int64
	if len(fracPart) > 0 {
		cents = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		cents += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}
	return units*100 + cents, nil
}

// Units returns the whole-currency value for display.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}
