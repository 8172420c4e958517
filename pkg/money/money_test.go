package money

import (
	"math"
	"testing"
)

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  bool
	}{
		{name: "finite number", input: 123.45, want: true},
		{name: "infinity", input: math.Inf(1), want: false},
		{name: "negative infinity", input: math.Inf(-1), want: false},
		{name: "NaN", input: math.NaN(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.input); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{name: "small", input: 999, want: "₹999"},
		{name: "thousands", input: 5000, want: "₹5,000"},
		{name: "lakhs", input: 600000, want: "₹6,00,000"},
		{name: "sip maturity", input: 1161695.38, want: "₹11,61,695"},
		{name: "crores", input: 123456789, want: "₹12,34,56,789"},
		{name: "rounds half up", input: 8678.5, want: "₹8,679"},
		{name: "negative", input: -150000, want: "-₹1,50,000"},
		{name: "zero", input: 0, want: "₹0"},
		{name: "not finite", input: math.NaN(), want: "₹0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatINR(tt.input); got != tt.want {
				t.Errorf("FormatINR(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(53.846); got != "54%" {
		t.Errorf("FormatPercent() = %q, want %q", got, "54%")
	}
}
