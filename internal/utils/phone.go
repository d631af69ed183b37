package utils

import (
	"strings"
)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// NormalizePhone приводит номер к виду +<цифры>. Возвращает false, если номер непригоден для SMS.
// Французский национальный формат 0XXXXXXXXX переводится в +33XXXXXXXXX.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-' || r == '(' || r == ')':
			// разделители
		default:
			return "", false
		}
	}
	p := b.String()
	switch {
	case strings.HasPrefix(p, "00"):
		p = "+" + p[2:]
	case len(p) == 10 && strings.HasPrefix(p, "0"):
		p = "+33" + p[1:]
	case p != "" && !strings.HasPrefix(p, "+"):
		p = "+" + p
	}
	digits := len(strings.TrimPrefix(p, "+"))
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return "", false
	}
	return p, true
}

// MaskPhone keeps the first four and last two characters: +33612345678 -> +336******78.
func MaskPhone(phone string) string {
	n := len(phone)
	if n == 0 {
		return ""
	}
	if n <= 6 {
		if n <= 2 {
			return strings.Repeat("*", n)
		}
		return strings.Repeat("*", n-2) + phone[n-2:]
	}
	return phone[:4] + strings.Repeat("*", n-6) + phone[n-2:]
}
