package service

import (
	"strings"
)

// DetectBrand returns the card brand for a sanitized instrument number, or
// "unknown". Only prefix ranges are inspected; the number itself is never
// retained.
func DetectBrand(number string) string {
	digits := sanitize(number)
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case hasPrefixInRange(digits, 51, 55) || hasPrefixInRange4(digits, 2221, 2720):
		return "mastercard"
	case strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37"):
		return "amex"
	case strings.HasPrefix(digits, "6011") || strings.HasPrefix(digits, "65"):
		return "discover"
	default:
		return "unknown"
	}
}

// Last4 returns the final four digits of a sanitized instrument number.
func Last4(number string) string {
	digits := sanitize(number)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func sanitize(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasPrefixInRange(digits string, lo, hi int) bool {
	if len(digits) < 2 {
		return false
	}
	prefix := int(digits[0]-'0')*10 + int(digits[1]-'0')
	return prefix >= lo && prefix <= hi
}

func hasPrefixInRange4(digits string, lo, hi int) bool {
	if len(digits) < 4 {
		return false
	}
	prefix := 0
	for i := 0; i < 4; i++ {
		prefix = prefix*10 + int(digits[i]-'0')
	}
	return prefix >= lo && prefix <= hi
}
