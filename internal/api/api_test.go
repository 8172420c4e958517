package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloud-ru/finassist-go/internal/cache"
	"github.com/cloud-ru/finassist-go/internal/chat"
	"github.com/cloud-ru/finassist-go/internal/config"
	"github.com/cloud-ru/finassist-go/internal/recorder"
	"github.com/cloud-ru/finassist-go/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type memoryRecorder struct {
	items []recorder.Calculation
}

func (m *memoryRecorder) RecordCalculation(ctx context.Context, c recorder.Calculation) error {
	m.items = append([]recorder.Calculation{c}, m.items...)
	return nil
}

func (m *memoryRecorder) Recent(ctx context.Context, limit int) ([]recorder.Calculation, error) {
	if limit < len(m.items) {
		return m.items[:limit], nil
	}
	return m.items, nil
}

func (m *memoryRecorder) Close() error { return nil }

type stubProvider struct {
	reply string
	err   error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Generate(ctx context.Context, prompt chat.Prompt) (string, error) {
	return p.reply, p.err
}

type testEnv struct {
	handler  http.Handler
	recorder *memoryRecorder
	limiter  *RateLimiter
}

func newTestEnv(t *testing.T, provider chat.Provider, withRules bool, rateLimit int, opts ...func(*Deps)) *testEnv {
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
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")

	var rules *chat.RuleBook
	if withRules {
		var err error
		rules, err = chat.LoadRuleBook("")
		require.NoError(t, err)
	}

	rec := &memoryRecorder{}
	limiter := NewRateLimiter(rateLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	deps := Deps{
		Registry: tools.NewRegistry(cfg, tracer),
		Chat:     chat.NewService(provider, rules, chat.NewSessionStore(time.Hour), time.Second, tracer, logger),
		Cache:    cache.NewMemoryCache(100),
		CacheTTL: time.Minute,
		Recorder: rec,
		Limiter:  limiter,
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv := NewServer(deps)
	return &testEnv{handler: srv.Router(), recorder: rec, limiter: limiter}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestCalculate(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		check      func(t *testing.T, resp map[string]interface{})
	}{
		{
			name: "investment",
			body: CalculateRequest{Type: "investment", Data: map[string]interface{}{
				"monthlyContribution": 5000, "rate": 12, "years": 10,
			}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				formatted := resp["formatted"].(map[string]interface{})
				assert.Equal(t, "₹6,00,000", formatted["totalContribution"])
				assert.Equal(t, "₹11,61,695", formatted["maturityAmount"])
			},
		},
		{
			name: "loan",
			body: CalculateRequest{Type: "Loan", Data: map[string]interface{}{
				"principal": 1000000, "rate": 8.5, "years": 20,
			}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				result := resp["result"].(map[string]interface{})
				assert.InDelta(t, 8678, result["emi"].(float64), 1)
				assert.Len(t, result["yearlyBreakdown"], 20)
				assert.Len(t, result["schedule"], 240)
			},
		},
		{
			name: "allocation",
			body: CalculateRequest{Type: "allocation", Data: map[string]interface{}{
				"age": 60, "riskProfile": "aggressive", "horizon": 12,
			}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				formatted := resp["formatted"].(map[string]interface{})
				assert.Equal(t, "70%", formatted["equity"])
				assert.Equal(t, "20%", formatted["debt"])
				assert.Equal(t, "10%", formatted["other"])
			},
		},
		{
			name: "validation error",
			body: CalculateRequest{Type: "loan", Data: map[string]interface{}{
				"principal": -5, "rate": 8.5, "years": 20,
			}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "debt never paid off",
			body: CalculateRequest{Type: "debt", Data: map[string]interface{}{
				"debtAmount": 100000, "rate": 12, "monthlyPayment": 900,
			}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown type",
			body:       CalculateRequest{Type: "lottery", Data: map[string]interface{}{}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/calculate", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, resp["error"])
				return
			}
			tt.check(t, resp)
		})
	}
}

func TestCalculate_CachedAndRecorded(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)
	body := CalculateRequest{Type: "planning", Data: map[string]interface{}{
		"goalAmount": 500000, "years": 5, "inflationRate": 6,
	}}

	first := env.do(t, http.MethodPost, "/api/calculate", body)
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(t, http.MethodPost, "/api/calculate", body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, env.recorder.items, 1)

	rr := env.do(t, http.MethodGet, "/api/history?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var history struct {
		Items []recorder.Calculation `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history.Items, 1)
	assert.Equal(t, "planning", history.Items[0].Type)

	rr = env.do(t, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalculate_CacheKeyIgnoresExtraFields(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)

	requests := []CalculateRequest{
		{Type: "sip", Data: map[string]interface{}{"monthlyContribution": 5000, "rate": 12, "years": 10}},
		{Type: "investment", Data: map[string]interface{}{"monthlyContribution": 5000, "rate": 12, "years": 10, "nonce": "x1"}},
		{Type: "Investment", Data: map[string]interface{}{"monthlyContribution": "5000", "rate": 12, "years": 10, "nonce": "x2"}},
	}
	for i, body := range requests {
		rr := env.do(t, http.MethodPost, "/api/calculate", body)
		require.Equal(t, http.StatusOK, rr.Code, "request %d: %s", i, rr.Body.String())
	}
	require.Len(t, env.recorder.items, 1)
	assert.Equal(t, "investment", env.recorder.items[0].Type)
	assert.JSONEq(t, `{"monthlyContribution":5000,"rate":12,"years":10}`, string(env.recorder.items[0].Params))

	rr := env.do(t, http.MethodPost, "/api/calculate", CalculateRequest{Type: "investment", Data: map[string]interface{}{
		"monthlyContribution": 6000, "rate": 12, "years": 10,
	}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, env.recorder.items, 2)
}

func TestCalculate_InvalidBody(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, stubProvider{reply: "Start with an emergency fund."}, true, 100)

	rr := env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "Where do I start?", Topic: "planning"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
	assert.Equal(t, "Start with an emergency fund.", reply.Response)
	assert.Equal(t, "stub", reply.Source)
	require.NotEmpty(t, reply.SessionID)

	rr = env.do(t, http.MethodGet, "/api/chat/sessions/"+reply.SessionID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var sess chat.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	assert.Equal(t, "planning", sess.Topic)
	assert.Len(t, sess.History, 2)

	rr = env.do(t, http.MethodGet, "/api/chat/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChat_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, stubProvider{err: errors.New("timeout")}, false, 100)

	rr := env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "hello"})
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, chat.ErrorResponse, body.Response)
}

func TestTopic(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)

	rr := env.do(t, http.MethodGet, "/api/chat/topics/planning", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
	assert.Equal(t, "What would you like to plan for? (e.g., car, house, travel)", reply.Response)

	rr = env.do(t, http.MethodGet, "/api/chat/topics/crypto", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, true, 2)

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodGet, "/api/calculators", nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := env.do(t, http.MethodGet, "/api/calculators", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_ForwardedHeaders(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantStatus []int
	}{
		{
			name:       "untrusted headers are ignored",
			wantStatus: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
		{
			name:       "trusted proxy headers identify clients",
			trustProxy: true,
			wantStatus: []int{http.StatusOK, http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, true, 2, func(d *Deps) { d.TrustProxy = tt.trustProxy })

			for i, want := range tt.wantStatus {
				req := httptest.NewRequest(http.MethodGet, "/api/calculators", nil)
				req.RemoteAddr = "10.0.0.1:1234"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
				req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
				rr := httptest.NewRecorder()
				env.handler.ServeHTTP(rr, req)
				assert.Equal(t, want, rr.Code, "request %d", i+1)
			}
		})
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil, true, 100)

	rr := env.do(t, http.MethodOptions, "/api/chat", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusBadRequest, statusFor(tools.ErrUnknownTool))
}
