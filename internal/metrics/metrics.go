package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CalculationCalls счетчик вызовов калькуляторов
	CalculationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_calls_total",
			Help: "Total number of calculator invocations",
		},
		[]string{"calculation", "status"},
	)

	// CalculationErrors счетчик ошибок расчетов
	CalculationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_errors_total",
			Help: "Calculator failures by kind",
		},
		[]string{"calculation", "error_type"},
	)

	// ChatRequests счетчик запросов к чату
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat turns by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	// LLMLatency длительность вызовов языковой модели
	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of hosted language model calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider"},
	)

	// CacheLookups обращения к кэшу результатов расчетов
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_cache_lookups_total",
			Help: "Calculation cache lookups by result",
		},
		[]string{"result"},
	)

	// ActiveSessions число активных сессий чата
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_sessions",
			Help: "Chat sessions currently held in memory",
		},
	)
)
