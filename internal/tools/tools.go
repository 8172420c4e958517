package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloud-ru/finassist-go/internal/calculations"
	"github.com/cloud-ru/finassist-go/internal/config"
	"github.com/cloud-ru/finassist-go/internal/metrics"
	"github.com/cloud-ru/finassist-go/internal/validators"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownTool запрошен неизвестный тип расчета
var ErrUnknownTool = errors.New("unknown calculation type")

// ToolHandler представляет обработчик одного типа расчета
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Registry сопоставляет тип расчета ({type} в запросе) с обработчиком
type Registry struct {
	handlers map[string]ToolHandler
}

// NewRegistry регистрирует все калькуляторы
func NewRegistry(cfg *config.Config, tracer trace.Tracer) *Registry {
	investment := InvestmentHandler(cfg, tracer)
	return &Registry{
		handlers: map[string]ToolHandler{
			"investment": investment,
			"sip":        investment,
			"loan":       LoanHandler(cfg, tracer),
			"planning":   PlanningHandler(cfg, tracer),
			"debt":       DebtHandler(cfg, tracer),
			"retirement": RetirementHandler(cfg, tracer),
			"allocation": AllocationHandler(cfg, tracer),
		},
	}
}

// Call выполняет расчет указанного типа
func (r *Registry) Call(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return h(ctx, params)
}

// Names возвращает отсортированный список типов расчетов
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toolParams параметры, которые читает каждый обработчик; sip - синоним investment
var (
	toolParams = map[string][]string{
		"investment": {"monthlyContribution", "rate", "years", "principal"},
		"loan":       {"principal", "rate", "years"},
		"planning":   {"goalAmount", "years", "inflationRate", "currentSavings"},
		"debt":       {"debtAmount", "rate", "monthlyPayment"},
		"retirement": {"currentAge", "retirementAge", "monthlyExpenses", "inflationRate", "returnRate"},
		"allocation": {"age", "riskProfile", "horizon"},
	}
	toolAliases = map[string]string{"sip": "investment"}
)

// CanonicalParams приводит запрос к виду для ключа кэша: синоним заменяется
// основным типом, остаются только читаемые обработчиком поля, числа (в том числе
// строковые) становятся float64, профиль риска - в нижнем регистре.
// Запросы, дающие одинаковый результат, получают одинаковые параметры.
func (r *Registry) CanonicalParams(name string, params map[string]interface{}) (string, map[string]interface{}, error) {
	if _, ok := r.handlers[name]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if alias, ok := toolAliases[name]; ok {
		name = alias
	}

	out := make(map[string]interface{}, len(toolParams[name]))
	for _, key := range toolParams[name] {
		raw, ok := params[key]
		if !ok || raw == nil {
			continue
		}
		if s, isString := raw.(string); isString {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if key == "riskProfile" {
				out[key] = strings.ToLower(s)
				continue
			}
		}
		if f, err := toFloat(key, raw); err == nil {
			out[key] = f
			continue
		}
		out[key] = raw
	}
	return name, out, nil
}

// InvestmentHandler обрабатывает запрос на расчет SIP
func InvestmentHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		var in calculations.InvestmentInput
		err := extract(
			func() (err error) { in.MonthlyContribution, err = floatParam(params, "monthlyContribution"); return },
			func() (err error) { in.AnnualRatePercent, err = floatParam(params, "rate"); return },
			func() (err error) { in.Years, err = intParam(params, "years"); return },
			func() (err error) { in.InitialAmount, err = optionalFloatParam(params, "principal"); return },
		)

		return run(ctx, tracer, "investment", err,
			[]attribute.KeyValue{
				attribute.Float64("monthly_contribution", in.MonthlyContribution),
				attribute.Float64("annual_rate_percent", in.AnnualRatePercent),
				attribute.Int("years", in.Years),
				attribute.Float64("initial_amount", in.InitialAmount),
			},
			func() error { return validators.CheckInvestment(cfg, in) },
			func() (interface{}, error) { return calculations.ProjectSIP(in) },
		)
	}
}

// LoanHandler обрабатывает запрос на расчет EMI
func LoanHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		var in calculations.LoanInput
		err := extract(
			func() (err error) { in.Principal, err = floatParam(params, "principal"); return },
			func() (err error) { in.AnnualRatePercent, err = floatParam(params, "rate"); return },
			func() (err error) { in.Years, err = intParam(params, "years"); return },
		)

		return run(ctx, tracer, "loan", err,
			[]attribute.KeyValue{
				attribute.Float64("principal", in.Principal),
				attribute.Float64("annual_rate_percent", in.AnnualRatePercent),
				attribute.Int("years", in.Years),
			},
			func() error { return validators.CheckLoan(cfg, in) },
			func() (interface{}, error) { return calculations.AmortizeLoan(in) },
		)
	}
}

// PlanningHandler обрабатывает запрос на планирование цели
func PlanningHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		var in calculations.PlanningInput
		err := extract(
			func() (err error) { in.GoalAmount, err = floatParam(params, "goalAmount"); return },
			func() (err error) { in.Years, err = intParam(params, "years"); return },
			func() (err error) { in.InflationRatePercent, err = optionalFloatParam(params, "inflationRate"); return },
			func() (err error) { in.CurrentSavings, err = optionalFloatParam(params, "currentSavings"); return },
		)

		return run(ctx, tracer, "planning", err,
			[]attribute.KeyValue{
				attribute.Float64("goal_amount", in.GoalAmount),
				attribute.Int("years", in.Years),
				attribute.Float64("inflation_rate_percent", in.InflationRatePercent),
				attribute.Float64("current_savings", in.CurrentSavings),
			},
			func() error { return validators.CheckPlanning(cfg, in) },
			func() (interface{}, error) { return calculations.PlanGoal(in) },
		)
	}
}

// DebtHandler обрабатывает запрос на симуляцию погашения долга
func DebtHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		in := calculations.DebtInput{MaxMonths: cfg.MaxPayoffMonths}
		err := extract(
			func() (err error) { in.DebtAmount, err = floatParam(params, "debtAmount"); return },
			func() (err error) { in.AnnualRatePercent, err = floatParam(params, "rate"); return },
			func() (err error) { in.MonthlyPayment, err = floatParam(params, "monthlyPayment"); return },
		)

		return run(ctx, tracer, "debt", err,
			[]attribute.KeyValue{
				attribute.Float64("debt_amount", in.DebtAmount),
				attribute.Float64("annual_rate_percent", in.AnnualRatePercent),
				attribute.Float64("monthly_payment", in.MonthlyPayment),
			},
			func() error { return validators.CheckDebt(cfg, in) },
			func() (interface{}, error) { return calculations.SimulatePayoff(in) },
		)
	}
}

// RetirementHandler обрабатывает запрос на расчет пенсионного капитала
func RetirementHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		in := calculations.RetirementInput{PayoutMonths: cfg.PayoutMonths}
		err := extract(
			func() (err error) { in.CurrentAge, err = intParam(params, "currentAge"); return },
			func() (err error) { in.RetirementAge, err = intParam(params, "retirementAge"); return },
			func() (err error) { in.MonthlyExpenses, err = floatParam(params, "monthlyExpenses"); return },
			func() (err error) { in.InflationRatePercent, err = floatParam(params, "inflationRate"); return },
			func() (err error) { in.ReturnRatePercent, err = floatParam(params, "returnRate"); return },
		)

		return run(ctx, tracer, "retirement", err,
			[]attribute.KeyValue{
				attribute.Int("current_age", in.CurrentAge),
				attribute.Int("retirement_age", in.RetirementAge),
				attribute.Float64("monthly_expenses", in.MonthlyExpenses),
				attribute.Float64("inflation_rate_percent", in.InflationRatePercent),
				attribute.Float64("return_rate_percent", in.ReturnRatePercent),
			},
			func() error { return validators.CheckRetirement(cfg, in) },
			func() (interface{}, error) { return calculations.PlanRetirement(in) },
		)
	}
}

// AllocationHandler обрабатывает запрос на распределение активов
func AllocationHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		var in calculations.AllocationInput
		var profile string
		err := extract(
			func() (err error) { in.Age, err = intParam(params, "age"); return },
			func() (err error) { profile, err = stringParam(params, "riskProfile"); return },
			func() (err error) { in.HorizonYears, err = intParam(params, "horizon"); return },
		)
		if err == nil {
			if in.RiskProfile, err = calculations.ParseRiskProfile(profile); err != nil {
				err = fmt.Errorf("%w: %v", validators.ErrValidation, err)
			}
		}

		return run(ctx, tracer, "allocation", err,
			[]attribute.KeyValue{
				attribute.Int("age", in.Age),
				attribute.String("risk_profile", profile),
				attribute.Int("horizon_years", in.HorizonYears),
			},
			func() error { return validators.CheckAllocation(cfg, in) },
			func() (interface{}, error) { return calculations.Allocate(in) },
		)
	}
}

func extract(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// run оборачивает расчет в спан и метрики: ошибка разбора параметров и
// ошибка валидации учитываются как validation_error, ошибка формулы как error
func run(
	ctx context.Context,
	tracer trace.Tracer,
	toolName string,
	paramErr error,
	attrs []attribute.KeyValue,
	validate func() error,
	calculate func() (interface{}, error),
) (interface{}, error) {
	_, span := tracer.Start(ctx, toolName)
	defer span.End()

	span.SetAttributes(attrs...)

	err := paramErr
	if err == nil {
		err = validate()
	}
	if err != nil {
		span.SetAttributes(attribute.String("error", "validation_error"))
		span.SetStatus(codes.Error, err.Error())
		metrics.CalculationCalls.WithLabelValues(toolName, "validation_error").Inc()
		metrics.CalculationErrors.WithLabelValues(toolName, "validation").Inc()
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	result, err := calculate()
	if err != nil {
		kind := "calculation"
		if errors.Is(err, calculations.ErrNonConvergence) {
			kind = "non_convergence"
		}
		span.SetAttributes(attribute.String("error", kind))
		span.SetStatus(codes.Error, err.Error())
		metrics.CalculationCalls.WithLabelValues(toolName, "error").Inc()
		metrics.CalculationErrors.WithLabelValues(toolName, kind).Inc()
		return nil, fmt.Errorf("calculation failed: %w", err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	metrics.CalculationCalls.WithLabelValues(toolName, "success").Inc()

	return result, nil
}
