package calculations

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RiskProfile склонность инвестора к риску
type RiskProfile string

const (
	Conservative RiskProfile = "conservative"
	Moderate     RiskProfile = "moderate"
	Aggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile разбирает профиль риска без учета регистра
func ParseRiskProfile(s string) (RiskProfile, error) {
	p := RiskProfile(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown risk profile %q", ErrInvalidInput, s)
	}
	return p, nil
}

// Valid сообщает, известен ли профиль
func (p RiskProfile) Valid() bool {
	switch p {
	case Conservative, Moderate, Aggressive:
		return true
	}
	return false
}

// Allocate распределяет портфель по правилу "100 минус возраст" с поправками
// на профиль риска и горизонт инвестирования.
//
// Остаток Other считается после поправки на горизонт. Если акции и облигации
// вместе превышают 100%, Other обнуляется, а их доли пропорционально
// нормируются к 100.
func Allocate(in AllocationInput) (*AllocationResult, error) {
	if in.Age <= 0 {
		return nil, fmt.Errorf("%w: age must be positive", ErrInvalidInput)
	}
	if in.HorizonYears <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", ErrInvalidInput)
	}

	base := math.Max(0, 100-float64(in.Age))

	var equity, debt float64
	switch in.RiskProfile {
	case Conservative:
		equity = math.Max(0, base-20)
		debt = math.Min(80, base+20)
	case Moderate:
		equity = base
		debt = math.Min(60, base+10)
	case Aggressive:
		equity = math.Min(80, base+20)
		debt = math.Max(20, base-20)
	default:
		return nil, fmt.Errorf("%w: unknown risk profile %q", ErrInvalidInput, in.RiskProfile)
	}

	switch {
	case in.HorizonYears > 10:
		equity = math.Min(80, equity+10)
		debt = math.Max(20, debt-10)
	case in.HorizonYears < 5:
		equity = math.Max(20, equity-10)
		debt = math.Min(80, debt+10)
	}

	other := 100 - equity - debt
	if other < 0 {
		equity = equity * 100 / (equity + debt)
		debt = 100 - equity
		other = 0
	}

	return &AllocationResult{
		EquityPct: equity,
		DebtPct:   debt,
		OtherPct:  other,
		Rounded:   roundAllocation(equity, debt, other),
		RiskLevels: RiskLevels{
			Equity: equity / 100 * 10,
			Debt:   debt / 100 * 5,
			Other:  other / 100 * 3,
		},
	}, nil
}

// roundAllocation округляет доли методом наибольшего остатка, сохраняя сумму 100
func roundAllocation(equity, debt, other float64) RoundedAllocation {
	values := []float64{equity, debt, other}
	floors := make([]int, len(values))
	order := make([]int, len(values))

	sum := 0
	for i, v := range values {
		floors[i] = int(math.Floor(v))
		order[i] = i
		sum += floors[i]
	}

	sort.SliceStable(order, func(a, b int) bool {
		ra := values[order[a]] - math.Floor(values[order[a]])
		rb := values[order[b]] - math.Floor(values[order[b]])
		return ra > rb
	})
	for i := 0; sum < 100 && i < len(order); i++ {
		floors[order[i]]++
		sum++
	}

	return RoundedAllocation{Equity: floors[0], Debt: floors[1], Other: floors[2]}
}
