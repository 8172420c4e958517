package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloud-ru/finassist-go/internal/cache"
	"github.com/cloud-ru/finassist-go/internal/chat"
	"github.com/cloud-ru/finassist-go/internal/recorder"
	"github.com/cloud-ru/finassist-go/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 60 * time.Second
)

// Server HTTP-слой: калькуляторы, чат и служебные эндпоинты
type Server struct {
	registry *tools.Registry
	chat     *chat.Service
	cache    cache.Cache
	cacheTTL time.Duration
	recorder recorder.Recorder
	limiter  *RateLimiter
	logger   *slog.Logger

	trustProxy bool
}

// Deps зависимости сервера. Cache и Recorder необязательны.
type Deps struct {
	Registry *tools.Registry
	Chat     *chat.Service
	Cache    cache.Cache
	CacheTTL time.Duration
	Recorder recorder.Recorder
	Limiter  *RateLimiter
	Logger   *slog.Logger

	// TrustProxy: адрес клиента берется из X-Forwarded-For / X-Real-IP.
	// Без него лимитер считает запросы по адресу сокета.
	TrustProxy bool
}

func NewServer(d Deps) *Server {
	rec := d.Recorder
	if rec == nil {
		rec = recorder.NoopRecorder{}
	}
	return &Server{
		registry: d.Registry,
		chat:     d.Chat,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		recorder: rec,
		limiter:  d.Limiter,
		logger:   d.Logger,

		trustProxy: d.TrustProxy,
	}
}

// Router собирает маршруты
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}

		r.Post("/calculate", s.handleCalculate)
		r.Get("/calculators", s.handleCalculators)
		r.Get("/history", s.handleHistory)

		r.Post("/chat", s.handleChat)
		r.Get("/chat/topics/{topic}", s.handleTopic)
		r.Get("/chat/sessions/{id}", s.handleSession)
	})

	return r
}

// requestLogger пишет строку лога на каждый запрос
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type errorBody struct {
	Error    string `json:"error"`
	Response string `json:"response,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
