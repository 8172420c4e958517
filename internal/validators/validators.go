package validators

import (
	"errors"
	"fmt"

	"github.com/cloud-ru/finassist-go/internal/calculations"
	"github.com/cloud-ru/finassist-go/internal/config"
	"github.com/cloud-ru/finassist-go/pkg/money"
)

// ErrValidation оборачивает все ошибки проверки входных данных
var ErrValidation = errors.New("validation failed")

// ValidatePositiveNumber проверяет, что число строго положительное и не превышает максимум
func ValidatePositiveNumber(name string, value, maxInclusive float64) error {
	if !money.IsFinite(value) {
		return fmt.Errorf("%w: %s: value is not a finite number", ErrValidation, name)
	}
	if value <= 0 {
		return fmt.Errorf("%w: %s: value must be > 0", ErrValidation, name)
	}
	if value > maxInclusive {
		return fmt.Errorf("%w: %s: value is too large (>%.0f)", ErrValidation, name, maxInclusive)
	}
	return nil
}

// ValidateNonNegativeNumber проверяет, что число не отрицательное и не превышает максимум
func ValidateNonNegativeNumber(name string, value, maxInclusive float64) error {
	if !money.IsFinite(value) {
		return fmt.Errorf("%w: %s: value is not a finite number", ErrValidation, name)
	}
	if value < 0 {
		return fmt.Errorf("%w: %s: value must be ≥ 0", ErrValidation, name)
	}
	if value > maxInclusive {
		return fmt.Errorf("%w: %s: value is too large (>%.0f)", ErrValidation, name, maxInclusive)
	}
	return nil
}

// ValidateIntRange проверяет, что целое число в допустимом диапазоне
func ValidateIntRange(name string, value int, minInclusive, maxInclusive int) error {
	if value < minInclusive || value > maxInclusive {
		return fmt.Errorf("%w: %s: value must be in range [%d; %d]", ErrValidation, name, minInclusive, maxInclusive)
	}
	return nil
}

// CheckPrincipal проверяет сумму кредита, долга или цели
func CheckPrincipal(cfg *config.Config, name string, amount float64) error {
	return ValidatePositiveNumber(name, amount, cfg.MaxPrincipal)
}

// CheckContribution проверяет ежемесячный взнос или платеж
func CheckContribution(cfg *config.Config, name string, contribution float64) error {
	return ValidatePositiveNumber(name, contribution, cfg.MaxContribution)
}

// CheckRate проверяет процентную ставку: 0 < r ≤ MaxRate
func CheckRate(cfg *config.Config, name string, rate float64) error {
	return ValidatePositiveNumber(name, rate, cfg.MaxRate)
}

// CheckYears проверяет срок в годах
func CheckYears(cfg *config.Config, years int) error {
	return ValidateIntRange("years", years, 1, cfg.MaxYears)
}

// CheckAge проверяет возраст
func CheckAge(cfg *config.Config, name string, age int) error {
	return ValidateIntRange(name, age, cfg.MinAge, cfg.MaxAge)
}

// CheckInvestment проверяет параметры SIP
func CheckInvestment(cfg *config.Config, in calculations.InvestmentInput) error {
	return firstError(
		CheckContribution(cfg, "monthlyContribution", in.MonthlyContribution),
		CheckRate(cfg, "rate", in.AnnualRatePercent),
		CheckYears(cfg, in.Years),
		ValidateNonNegativeNumber("principal", in.InitialAmount, cfg.MaxPrincipal),
	)
}

// CheckLoan проверяет параметры кредита
func CheckLoan(cfg *config.Config, in calculations.LoanInput) error {
	return firstError(
		CheckPrincipal(cfg, "principal", in.Principal),
		CheckRate(cfg, "rate", in.AnnualRatePercent),
		CheckYears(cfg, in.Years),
	)
}

// CheckPlanning проверяет параметры цели
func CheckPlanning(cfg *config.Config, in calculations.PlanningInput) error {
	return firstError(
		CheckPrincipal(cfg, "goalAmount", in.GoalAmount),
		CheckYears(cfg, in.Years),
		ValidateNonNegativeNumber("inflationRate", in.InflationRatePercent, cfg.MaxRate),
		ValidateNonNegativeNumber("currentSavings", in.CurrentSavings, cfg.MaxPrincipal),
	)
}

// CheckDebt проверяет параметры погашения долга
func CheckDebt(cfg *config.Config, in calculations.DebtInput) error {
	return firstError(
		CheckPrincipal(cfg, "debtAmount", in.DebtAmount),
		CheckRate(cfg, "rate", in.AnnualRatePercent),
		CheckContribution(cfg, "monthlyPayment", in.MonthlyPayment),
	)
}

// CheckRetirement проверяет параметры пенсионного плана
func CheckRetirement(cfg *config.Config, in calculations.RetirementInput) error {
	if err := firstError(
		CheckAge(cfg, "currentAge", in.CurrentAge),
		ValidateIntRange("retirementAge", in.RetirementAge, cfg.MinAge, cfg.MaxRetirementAge),
		CheckContribution(cfg, "monthlyExpenses", in.MonthlyExpenses),
		CheckRate(cfg, "inflationRate", in.InflationRatePercent),
		CheckRate(cfg, "returnRate", in.ReturnRatePercent),
	); err != nil {
		return err
	}
	if in.RetirementAge <= in.CurrentAge {
		return fmt.Errorf("%w: retirementAge must be greater than currentAge", ErrValidation)
	}
	return nil
}

// CheckAllocation проверяет параметры распределения активов
func CheckAllocation(cfg *config.Config, in calculations.AllocationInput) error {
	if err := CheckAge(cfg, "age", in.Age); err != nil {
		return err
	}
	if !in.RiskProfile.Valid() {
		return fmt.Errorf("%w: riskProfile: must be one of conservative, moderate, aggressive", ErrValidation)
	}
	return ValidateIntRange("horizon", in.HorizonYears, 1, cfg.MaxYears)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
