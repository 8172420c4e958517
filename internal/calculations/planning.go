package calculations

import (
	"fmt"
	"math"
)

// PlanGoal рассчитывает, сколько откладывать ежемесячно, чтобы накопить на цель
// с учетом инфляции.
//
// Накопления откладываются линейно: доходность на сами сбережения не учитывается,
// инфляция применяется только к сумме цели. Колонка Target в разбивке растет
// линейно к скорректированной сумме, а не по кривой сложной инфляции.
func PlanGoal(in PlanningInput) (*PlanningResult, error) {
	if in.GoalAmount <= 0 {
		return nil, fmt.Errorf("%w: goal amount must be positive", ErrInvalidInput)
	}
	if in.Years <= 0 {
		return nil, fmt.Errorf("%w: years must be positive", ErrInvalidInput)
	}
	if in.InflationRatePercent < 0 || in.CurrentSavings < 0 {
		return nil, fmt.Errorf("%w: inflation and current savings must not be negative", ErrInvalidInput)
	}

	years := float64(in.Years)
	adjusted := in.GoalAmount * math.Pow(1+in.InflationRatePercent/100, years)

	// Если сбережения уже покрывают цель, взнос отрицательный: столько можно
	// ежемесячно изымать, оставаясь на траектории к цели.
	monthly := (adjusted - in.CurrentSavings) / (years * 12)
	covered := monthly <= 0

	breakdown := make([]PlanningYear, 0, in.Years)
	saved := in.CurrentSavings
	for year := 1; year <= in.Years; year++ {
		yearSavings := monthly * 12
		saved += yearSavings

		breakdown = append(breakdown, PlanningYear{
			Year:    year,
			Savings: yearSavings,
			Total:   saved,
			Target:  adjusted * (float64(year) / years),
		})
	}

	return &PlanningResult{
		InflationAdjustedAmount: adjusted,
		MonthlySavings:          monthly,
		TotalSavings:            monthly * 12 * years,
		GoalCovered:             covered,
		YearlyBreakdown:         breakdown,
	}, nil
}
