package calculations

import (
	"fmt"
	"math"
)

// ProjectSIP рассчитывает рост SIP (взнос в начале каждого месяца).
// Итог каждого года считается по замкнутой формуле, а не накоплением по месяцам,
// поэтому последняя строка разбивки совпадает с MaturityAmount бит в бит.
func ProjectSIP(in InvestmentInput) (*InvestmentResult, error) {
	if in.Years <= 0 {
		return nil, fmt.Errorf("%w: years must be positive", ErrInvalidInput)
	}
	if in.MonthlyContribution <= 0 {
		return nil, fmt.Errorf("%w: monthly contribution must be positive", ErrInvalidInput)
	}
	if in.AnnualRatePercent < 0 || in.InitialAmount < 0 {
		return nil, fmt.Errorf("%w: rate and initial amount must not be negative", ErrInvalidInput)
	}

	r := monthlyRate(in.AnnualRatePercent)
	n := in.Years * 12

	breakdown := make([]InvestmentYear, 0, in.Years)
	invested := in.InitialAmount
	for year := 1; year <= in.Years; year++ {
		invested += in.MonthlyContribution * 12
		total := sipValue(in, r, year*12)

		breakdown = append(breakdown, InvestmentYear{
			Year:     year,
			Invested: invested,
			Returns:  total - invested,
			Total:    total,
		})
	}

	maturity := sipValue(in, r, n)
	contribution := in.InitialAmount + in.MonthlyContribution*float64(n)

	return &InvestmentResult{
		MaturityAmount:    maturity,
		TotalContribution: contribution,
		TotalReturns:      maturity - contribution,
		YearlyBreakdown:   breakdown,
	}, nil
}

// sipValue стоимость портфеля через months месяцев
func sipValue(in InvestmentInput, r float64, months int) float64 {
	n := float64(months)
	if r == 0 {
		return in.InitialAmount + in.MonthlyContribution*n
	}

	growth := math.Pow(1+r, n)
	annuity := in.MonthlyContribution * (growth - 1) / r * (1 + r)
	return in.InitialAmount*growth + annuity
}

// monthlyRate переводит годовую ставку в процентах в месячную долю (простое деление на 12)
func monthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / 12.0 / 100.0
}
