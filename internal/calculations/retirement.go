package calculations

import (
	"fmt"
	"math"
)

// DefaultPayoutMonths горизонт выплат из пенсионного капитала (25 лет)
const DefaultPayoutMonths = 300

// PlanRetirement рассчитывает необходимый пенсионный капитал и ежемесячный взнос до пенсии.
//
// Месячные ставки выводятся как (1+годовая)^(1/12)-1, а не делением на 12,
// как в остальных калькуляторах. Капитал рассчитывается как приведенная стоимость
// PayoutMonths выплат, равных скорректированным на инфляцию годовым расходам.
func PlanRetirement(in RetirementInput) (*RetirementResult, error) {
	years := in.RetirementAge - in.CurrentAge
	if years <= 0 {
		return nil, fmt.Errorf("%w: retirement age must be greater than current age", ErrInvalidInput)
	}
	if in.MonthlyExpenses <= 0 {
		return nil, fmt.Errorf("%w: monthly expenses must be positive", ErrInvalidInput)
	}
	if in.InflationRatePercent < 0 || in.ReturnRatePercent < 0 {
		return nil, fmt.Errorf("%w: rates must not be negative", ErrInvalidInput)
	}

	payout := in.PayoutMonths
	if payout <= 0 {
		payout = DefaultPayoutMonths
	}

	mr := compoundMonthlyRate(in.ReturnRatePercent)
	annualExpenses := in.MonthlyExpenses * 12
	adjustedExpenses := annualExpenses * math.Pow(1+in.InflationRatePercent/100, float64(years))

	accumulationMonths := years * 12
	var corpus, monthly float64
	if mr == 0 {
		corpus = adjustedExpenses * float64(payout)
		monthly = corpus / float64(accumulationMonths)
	} else {
		corpus = adjustedExpenses * (1 - math.Pow(1+mr, -float64(payout))) / mr
		monthly = corpus * mr / (math.Pow(1+mr, float64(accumulationMonths)) - 1)
	}

	total := monthly * float64(accumulationMonths)

	growth := make([]CorpusPoint, 0, years+1)
	for y := 0; y <= years; y++ {
		growth = append(growth, CorpusPoint{
			Year:    y,
			Balance: sinkingFundBalance(monthly, mr, y*12),
		})
	}

	return &RetirementResult{
		YearsToRetirement:               years,
		InflationAdjustedAnnualExpenses: adjustedExpenses,
		RequiredCorpus:                  corpus,
		MonthlyInvestment:               monthly,
		TotalInvestmentNeeded:           total,
		ExpectedReturns:                 corpus - total,
		CorpusGrowth:                    growth,
	}, nil
}

// compoundMonthlyRate эквивалентная месячная ставка при ежемесячной капитализации
func compoundMonthlyRate(annualRatePercent float64) float64 {
	return math.Pow(1+annualRatePercent/100, 1.0/12.0) - 1
}

// sinkingFundBalance баланс после months взносов в конце месяца
func sinkingFundBalance(payment, r float64, months int) float64 {
	if months == 0 {
		return 0
	}
	if r == 0 {
		return payment * float64(months)
	}
	return payment * (math.Pow(1+r, float64(months)) - 1) / r
}
