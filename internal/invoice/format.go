package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatINR группирует разряды по-индийски: 12,34,567.00
func FormatINR(v decimal.Decimal) string {
	return formatGrouped(v, groupIndian)
}

// FormatWestern группирует по три разряда: 1,234,567.00
func FormatWestern(v decimal.Decimal) string {
	return formatGrouped(v, groupThousands)
}

// FormatMoney сумма с обозначением валюты. В стандартных шрифтах PDF нет знака рупии, поэтому "Rs."
func FormatMoney(currency string, v decimal.Decimal) string {
	if currency == "" || strings.EqualFold(currency, "INR") {
		return "Rs. " + FormatINR(v)
	}
	return strings.ToUpper(currency) + " " + FormatWestern(v)
}

func formatGrouped(v decimal.Decimal, group func(string) string) string {
	s := v.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	sign := ""
	if v.IsNegative() && !v.Round(2).IsZero() {
		sign = "-"
	}
	return sign + group(intPart) + "." + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, ",")
}
