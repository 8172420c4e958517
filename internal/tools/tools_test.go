package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloud-ru/finassist-go/internal/calculations"
	"github.com/cloud-ru/finassist-go/internal/config"
	"github.com/cloud-ru/finassist-go/internal/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := &config.Config{
		MaxPrincipal:     1e10,
		MaxContribution:  1e8,
		MaxYears:         50,
		MaxRate:          100,
		MinAge:           18,
		MaxAge:           80,
		MaxRetirementAge: 100,
		PayoutMonths:     300,
		MaxPayoffMonths:  600,
	}
	return NewRegistry(cfg, noop.NewTracerProvider().Tracer("test"))
}

func TestRegistry_Names(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, []string{"allocation", "debt", "investment", "loan", "planning", "retirement", "sip"}, r.Names())
}

func TestRegistry_Call(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		tool    string
		params  map[string]interface{}
		wantErr error
		check   func(t *testing.T, got interface{})
	}{
		{
			name:   "investment",
			tool:   "investment",
			params: map[string]interface{}{"monthlyContribution": 5000.0, "rate": 12.0, "years": 10.0},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.InvestmentResult)
				assert.InDelta(t, 600000, res.TotalContribution, 0.01)
				assert.InDelta(t, 1161695, res.MaturityAmount, 1)
			},
		},
		{
			name:   "sip alias with string numbers",
			tool:   "sip",
			params: map[string]interface{}{"monthlyContribution": "5000", "rate": "12", "years": "10"},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.InvestmentResult)
				assert.Len(t, res.YearlyBreakdown, 10)
			},
		},
		{
			name:   "loan",
			tool:   "loan",
			params: map[string]interface{}{"principal": 1000000.0, "rate": 8.5, "years": 20},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.LoanResult)
				assert.InDelta(t, 8678, res.EMI, 1)
			},
		},
		{
			name:   "planning without optional fields",
			tool:   "planning",
			params: map[string]interface{}{"goalAmount": 500000.0, "years": 5.0},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.PlanningResult)
				assert.InDelta(t, 500000, res.InflationAdjustedAmount, 0.01)
			},
		},
		{
			name:   "debt",
			tool:   "debt",
			params: map[string]interface{}{"debtAmount": 100000.0, "rate": 12.0, "monthlyPayment": 2000.0},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.DebtResult)
				assert.Equal(t, 70, res.Months)
			},
		},
		{
			name:    "debt payment too low",
			tool:    "debt",
			params:  map[string]interface{}{"debtAmount": 100000.0, "rate": 12.0, "monthlyPayment": 900.0},
			wantErr: calculations.ErrNonConvergence,
		},
		{
			name: "retirement",
			tool: "retirement",
			params: map[string]interface{}{
				"currentAge": 30.0, "retirementAge": 60.0, "monthlyExpenses": 50000.0,
				"inflationRate": 6.0, "returnRate": 12.0,
			},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.RetirementResult)
				assert.Equal(t, 30, res.YearsToRetirement)
				assert.Greater(t, res.RequiredCorpus, 0.0)
			},
		},
		{
			name:   "allocation",
			tool:   "allocation",
			params: map[string]interface{}{"age": 60.0, "riskProfile": "Moderate", "horizon": 7.0},
			check: func(t *testing.T, got interface{}) {
				res := got.(*calculations.AllocationResult)
				assert.Equal(t, calculations.RoundedAllocation{Equity: 40, Debt: 50, Other: 10}, res.Rounded)
			},
		},
		{
			name:    "allocation unknown profile",
			tool:    "allocation",
			params:  map[string]interface{}{"age": 35.0, "riskProfile": "reckless", "horizon": 10.0},
			wantErr: validators.ErrValidation,
		},
		{
			name:    "missing parameter",
			tool:    "loan",
			params:  map[string]interface{}{"principal": 1000000.0, "rate": 8.5},
			wantErr: validators.ErrValidation,
		},
		{
			name:    "fractional years",
			tool:    "loan",
			params:  map[string]interface{}{"principal": 1000000.0, "rate": 8.5, "years": 2.5},
			wantErr: validators.ErrValidation,
		},
		{
			name:    "non-numeric value",
			tool:    "investment",
			params:  map[string]interface{}{"monthlyContribution": "lots", "rate": 12.0, "years": 10.0},
			wantErr: validators.ErrValidation,
		},
		{
			name:    "zero rate rejected",
			tool:    "investment",
			params:  map[string]interface{}{"monthlyContribution": 5000.0, "rate": 0.0, "years": 10.0},
			wantErr: validators.ErrValidation,
		},
		{
			name:    "unknown type",
			tool:    "crypto",
			params:  map[string]interface{}{},
			wantErr: ErrUnknownTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Call(ctx, tt.tool, tt.params)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestRegistry_CanonicalParams(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name       string
		tool       string
		params     map[string]interface{}
		wantName   string
		wantParams map[string]interface{}
		wantErr    error
	}{
		{
			name:       "extra fields dropped",
			tool:       "loan",
			params:     map[string]interface{}{"principal": 1000000.0, "rate": 8.5, "years": 20.0, "nonce": "a1b2", "note": 42.0},
			wantName:   "loan",
			wantParams: map[string]interface{}{"principal": 1000000.0, "rate": 8.5, "years": 20.0},
		},
		{
			name:       "sip alias and string numbers",
			tool:       "sip",
			params:     map[string]interface{}{"monthlyContribution": "5000", "rate": json.Number("12"), "years": 10},
			wantName:   "investment",
			wantParams: map[string]interface{}{"monthlyContribution": 5000.0, "rate": 12.0, "years": 10.0},
		},
		{
			name:       "blank optional field same as absent",
			tool:       "planning",
			params:     map[string]interface{}{"goalAmount": 500000.0, "years": 5.0, "currentSavings": "  "},
			wantName:   "planning",
			wantParams: map[string]interface{}{"goalAmount": 500000.0, "years": 5.0},
		},
		{
			name:       "risk profile case folded",
			tool:       "allocation",
			params:     map[string]interface{}{"age": 35.0, "riskProfile": " Aggressive ", "horizon": 10.0},
			wantName:   "allocation",
			wantParams: map[string]interface{}{"age": 35.0, "riskProfile": "aggressive", "horizon": 10.0},
		},
		{
			name:       "unparseable value kept as is",
			tool:       "debt",
			params:     map[string]interface{}{"debtAmount": true, "rate": 12.0, "monthlyPayment": 5000.0},
			wantName:   "debt",
			wantParams: map[string]interface{}{"debtAmount": true, "rate": 12.0, "monthlyPayment": 5000.0},
		},
		{
			name:    "unknown type",
			tool:    "lottery",
			params:  map[string]interface{}{},
			wantErr: ErrUnknownTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, params, err := r.CanonicalParams(tt.tool, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestToolParams_CoverRegistry(t *testing.T) {
	r := testRegistry(t)
	for _, name := range r.Names() {
		if alias, ok := toolAliases[name]; ok {
			name = alias
		}
		assert.NotEmpty(t, toolParams[name], name)
	}
}
