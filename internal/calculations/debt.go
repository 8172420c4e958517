package calculations

import "fmt"

const (
	// DefaultMaxPayoffMonths верхняя граница симуляции погашения (50 лет)
	DefaultMaxPayoffMonths = 600

	// остаток меньше полукопейки считается погашенным
	debtBalanceTolerance = 0.005
)

// SimulatePayoff моделирует погашение долга фиксированным ежемесячным платежом.
// Если долг не погашен за MaxMonths месяцев, возвращается ErrPaymentTooLow.
func SimulatePayoff(in DebtInput) (*DebtResult, error) {
	if in.DebtAmount <= 0 {
		return nil, fmt.Errorf("%w: debt amount must be positive", ErrInvalidInput)
	}
	if in.AnnualRatePercent < 0 {
		return nil, fmt.Errorf("%w: rate must not be negative", ErrInvalidInput)
	}
	if in.MonthlyPayment <= 0 {
		return nil, fmt.Errorf("%w: monthly payment must be positive", ErrInvalidInput)
	}

	maxMonths := in.MaxMonths
	if maxMonths <= 0 {
		maxMonths = DefaultMaxPayoffMonths
	}

	r := monthlyRate(in.AnnualRatePercent)

	// Платеж не покрывает проценты первого месяца: долг только растет.
	if firstInterest := in.DebtAmount * r; in.MonthlyPayment <= firstInterest {
		return nil, fmt.Errorf("%w (payment %.2f, first month interest %.2f)",
			ErrPaymentTooLow, in.MonthlyPayment, firstInterest)
	}

	remaining := in.DebtAmount
	totalInterest := 0.0
	months := 0
	timeline := make([]DebtMonth, 0, 64)

	for remaining > debtBalanceTolerance && months < maxMonths {
		interest := remaining * r
		principal := in.MonthlyPayment - interest
		if principal > remaining {
			principal = remaining
		}
		remaining -= principal
		totalInterest += interest
		months++

		balance := remaining
		if balance < debtBalanceTolerance {
			balance = 0
		}

		timeline = append(timeline, DebtMonth{
			Month:     months,
			Principal: principal,
			Interest:  interest,
			Remaining: balance,
		})
	}

	if remaining > debtBalanceTolerance {
		return nil, fmt.Errorf("%w (not paid off within %d months)", ErrPaymentTooLow, maxMonths)
	}

	return &DebtResult{
		TotalInterest: totalInterest,
		TotalPayment:  in.DebtAmount + totalInterest,
		Months:        months,
		Timeline:      timeline,
	}, nil
}
