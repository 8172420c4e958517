package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloud-ru/finassist-go/internal/cache"
	"github.com/cloud-ru/finassist-go/internal/calculations"
	"github.com/cloud-ru/finassist-go/internal/chat"
	"github.com/cloud-ru/finassist-go/internal/metrics"
	"github.com/cloud-ru/finassist-go/internal/recorder"
	"github.com/cloud-ru/finassist-go/internal/tools"
	"github.com/cloud-ru/finassist-go/internal/validators"
	"github.com/cloud-ru/finassist-go/pkg/money"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 20

// CalculateRequest тело POST /api/calculate
type CalculateRequest struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// CalculateResponse результат расчета и ключевые суммы, отформатированные для показа
type CalculateResponse struct {
	Type      string            `json:"type"`
	Result    interface{}       `json:"result"`
	Formatted map[string]string `json:"formatted"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.Data == nil {
		req.Data = map[string]interface{}{}
	}

	ctx := r.Context()

	// Синоним (sip) отвечает и пишется в историю под основным типом
	var params map[string]interface{}
	if name, p, err := s.registry.CanonicalParams(req.Type, req.Data); err == nil {
		req.Type, params = name, p
	}

	var key string
	if s.cache != nil && params != nil {
		k, err := cache.Key(req.Type, params)
		if err == nil {
			key = k
			if cached, ok := s.cache.Get(ctx, key); ok {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				writeRawJSON(w, http.StatusOK, []byte(cached))
				return
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	result, err := s.registry.Call(ctx, req.Type, req.Data)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("calculation failed", "type", req.Type, "error", err)
			writeError(w, status, "failed to process request")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	body, err := json.Marshal(CalculateResponse{
		Type:      req.Type,
		Result:    result,
		Formatted: formatResult(result),
	})
	if err != nil {
		s.logger.Error("encode calculation result", "type", req.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, string(body), s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}

	paramsJSON, _ := json.Marshal(params)
	resultJSON, _ := json.Marshal(result)
	if err := s.recorder.RecordCalculation(ctx, recorder.Calculation{
		Type:   req.Type,
		Params: paramsJSON,
		Result: resultJSON,
	}); err != nil {
		s.logger.Warn("record calculation failed", "type", req.Type, "error", err)
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleCalculators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"types": s.registry.Names()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.recorder.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("load history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.chat.Reply(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chat.ErrUpstream), errors.Is(err, chat.ErrNoProvider):
			s.logger.Error("chat failed", "error", err)
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "failed to process request", Response: chat.ErrorResponse})
		default:
			s.logger.Error("chat failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to process request", Response: chat.ErrorResponse})
		}
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	reply, err := s.chat.StartTopic(r.URL.Query().Get("sessionId"), chi.URLParam(r, "topic"))
	if err != nil {
		if errors.Is(err, chat.ErrUnknownTopic) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.chat.Sessions().Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor сопоставляет ошибку расчета с HTTP-статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, tools.ErrUnknownTool),
		errors.Is(err, validators.ErrValidation),
		errors.Is(err, calculations.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, calculations.ErrNonConvergence):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// formatResult ключевые суммы результата в рупиях с индийской группировкой разрядов
func formatResult(result interface{}) map[string]string {
	switch res := result.(type) {
	case *calculations.InvestmentResult:
		return map[string]string{
			"maturityAmount":    money.FormatINR(res.MaturityAmount),
			"totalContribution": money.FormatINR(res.TotalContribution),
			"totalReturns":      money.FormatINR(res.TotalReturns),
		}
	case *calculations.LoanResult:
		return map[string]string{
			"emi":           money.FormatINR(res.EMI),
			"totalPayment":  money.FormatINR(res.TotalPayment),
			"totalInterest": money.FormatINR(res.TotalInterest),
		}
	case *calculations.PlanningResult:
		return map[string]string{
			"inflationAdjustedAmount": money.FormatINR(res.InflationAdjustedAmount),
			"monthlySavings":          money.FormatINR(res.MonthlySavings),
			"totalSavings":            money.FormatINR(res.TotalSavings),
		}
	case *calculations.DebtResult:
		return map[string]string{
			"totalInterest": money.FormatINR(res.TotalInterest),
			"totalPayment":  money.FormatINR(res.TotalPayment),
			"months":        fmt.Sprintf("%d months", res.Months),
		}
	case *calculations.RetirementResult:
		return map[string]string{
			"inflationAdjustedAnnualExpenses": money.FormatINR(res.InflationAdjustedAnnualExpenses),
			"requiredCorpus":                  money.FormatINR(res.RequiredCorpus),
			"monthlyInvestment":               money.FormatINR(res.MonthlyInvestment),
			"totalInvestmentNeeded":           money.FormatINR(res.TotalInvestmentNeeded),
			"expectedReturns":                 money.FormatINR(res.ExpectedReturns),
		}
	case *calculations.AllocationResult:
		return map[string]string{
			"equity": money.FormatPercent(float64(res.Rounded.Equity)),
			"debt":   money.FormatPercent(float64(res.Rounded.Debt)),
			"other":  money.FormatPercent(float64(res.Rounded.Other)),
		}
	default:
		return map[string]string{}
	}
}
