package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol символ рупии, которым помечаются суммы для отображения
const CurrencySymbol = "₹"

// IsFinite проверяет, является ли число конечным
func IsFinite(value float64) bool {
	return !math.IsInf(value, 0) && !math.IsNaN(value)
}

// FormatINR форматирует сумму в рупиях без дробной части с индийской группировкой
// разрядов: последние три цифры, затем группы по две (₹11,61,695).
func FormatINR(value float64) string {
	if !IsFinite(value) {
		return CurrencySymbol + "0"
	}

	amount := decimal.NewFromFloat(value).Round(0)
	negative := amount.IsNegative()
	digits := amount.Abs().StringFixed(0)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(CurrencySymbol)
	b.WriteString(groupIndian(digits))
	return b.String()
}

// FormatPercent форматирует процент, округленный до целого
func FormatPercent(value float64) string {
	return decimal.NewFromFloat(value).Round(0).StringFixed(0) + "%"
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}
