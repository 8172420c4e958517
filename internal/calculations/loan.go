package calculations

import (
	"fmt"
	"math"
)

// AmortizeLoan рассчитывает аннуитетный платеж (EMI) и график погашения
// с помесячными записями и годовыми корзинами по 12 месяцев.
//
// Остаток после k-го платежа считается в замкнутой форме
// P·((1+i)^n − (1+i)^k)/((1+i)^n − 1), а не вычитанием из предыдущего:
// при высоких ставках и длинных сроках ошибка округления EMI иначе растет как (1+i)^n.
func AmortizeLoan(in LoanInput) (*LoanResult, error) {
	if in.Principal <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}
	if in.Years <= 0 {
		return nil, fmt.Errorf("%w: years must be positive", ErrInvalidInput)
	}
	if in.AnnualRatePercent < 0 {
		return nil, fmt.Errorf("%w: rate must not be negative", ErrInvalidInput)
	}

	P := in.Principal
	n := in.Years * 12
	r := monthlyRate(in.AnnualRatePercent)
	emi := emiPayment(P, r, n)

	schedule := make([]LoanMonth, 0, n)
	yearly := make([]LoanYear, 0, in.Years)
	remaining := P

	for year := 1; year <= in.Years; year++ {
		bucket := LoanYear{Year: year, Total: emi * 12}

		for m := 1; m <= 12; m++ {
			month := (year-1)*12 + m
			next := math.Min(remainingAfter(P, r, n, month), remaining)
			principalComponent := remaining - next
			interest := 0.0
			if r != 0.0 {
				interest = emi - principalComponent
			}
			remaining = next

			bucket.Principal += principalComponent
			bucket.Interest += interest

			schedule = append(schedule, LoanMonth{
				Month:     month,
				Payment:   emi,
				Interest:  interest,
				Principal: principalComponent,
				Remaining: remaining,
			})
		}

		yearly = append(yearly, bucket)
	}

	totalPayment := emi * float64(n)

	return &LoanResult{
		EMI:             emi,
		TotalPayment:    totalPayment,
		TotalInterest:   totalPayment - P,
		YearlyBreakdown: yearly,
		Schedule:        schedule,
	}, nil
}

// emiPayment возвращает аннуитетный платеж; при нулевой ставке долг делится поровну
func emiPayment(principal, r float64, months int) float64 {
	if r == 0.0 {
		return principal / float64(months)
	}
	// P·r·g/(g−1) = P·r/(1−(1+r)^−n)
	return principal * r / -math.Expm1(-float64(months)*math.Log1p(r))
}

// remainingAfter остаток долга после k платежей из n; после последнего ровно 0
func remainingAfter(principal, r float64, n, k int) float64 {
	if k >= n {
		return 0
	}
	if r == 0.0 {
		return principal * float64(n-k) / float64(n)
	}
	lg := math.Log1p(r)
	return principal * math.Expm1(float64(k-n)*lg) / math.Expm1(-float64(n)*lg)
}
