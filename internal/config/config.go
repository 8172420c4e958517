package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config содержит конфигурацию сервера
type Config struct {
	Port int `yaml:"port"`

	// Лимиты валидации входных данных
	MaxPrincipal    float64 `yaml:"max_principal"`
	MaxContribution float64 `yaml:"max_contribution"`
	MaxYears        int     `yaml:"max_years"`
	MaxRate         float64 `yaml:"max_rate"`
	MinAge          int     `yaml:"min_age"`
	MaxAge          int     `yaml:"max_age"`

	MaxRetirementAge int `yaml:"max_retirement_age"`

	// Параметры расчетов
	PayoutMonths    int `yaml:"payout_months"`
	MaxPayoffMonths int `yaml:"max_payoff_months"`

	OTELEndpoint    string `yaml:"otel_endpoint"`
	OTELServiceName string `yaml:"otel_service_name"`
	LogLevel        string `yaml:"log_level"`

	LLMProvider   string        `yaml:"llm_provider"`
	LLMModel      string        `yaml:"llm_model"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`
	OpenAIAPIKey  string        `yaml:"-"`
	OpenAIAPIURL  string        `yaml:"openai_api_url"`
	GeminiAPIKey  string        `yaml:"-"`
	ChatRulesPath string        `yaml:"chat_rules_path"`

	RedisAddr       string        `yaml:"redis_addr"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	CacheSweepCron  string        `yaml:"cache_sweep_cron"`

	SQLitePath string `yaml:"sqlite_path"`

	SessionTTL       time.Duration `yaml:"session_ttl"`
	SessionSweepCron string        `yaml:"session_sweep_cron"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// TrustProxy разрешает брать адрес клиента из X-Forwarded-For / X-Real-IP.
	// Включать только за доверенным обратным прокси.
	TrustProxy bool `yaml:"trust_proxy"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл
// из CONFIG_PATH (если задан), затем переменные окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл, если он существует (игнорируем ошибку)
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.MaxPrincipal = getEnvFloat("MAX_PRINCIPAL", cfg.MaxPrincipal)
	cfg.MaxContribution = getEnvFloat("MAX_CONTRIBUTION", cfg.MaxContribution)
	cfg.MaxYears = getEnvInt("MAX_YEARS", cfg.MaxYears)
	cfg.MaxRate = getEnvFloat("MAX_RATE", cfg.MaxRate)
	cfg.MinAge = getEnvInt("MIN_AGE", cfg.MinAge)
	cfg.MaxAge = getEnvInt("MAX_AGE", cfg.MaxAge)
	cfg.MaxRetirementAge = getEnvInt("MAX_RETIREMENT_AGE", cfg.MaxRetirementAge)
	cfg.PayoutMonths = getEnvInt("PAYOUT_MONTHS", cfg.PayoutMonths)
	cfg.MaxPayoffMonths = getEnvInt("MAX_PAYOFF_MONTHS", cfg.MaxPayoffMonths)
	cfg.OTELEndpoint = getEnvString("OTEL_ENDPOINT", cfg.OTELEndpoint)
	cfg.OTELServiceName = getEnvString("OTEL_SERVICE_NAME", cfg.OTELServiceName)
	cfg.LogLevel = getEnvString("LOG_LEVEL", cfg.LogLevel)
	cfg.LLMProvider = strings.ToLower(getEnvString("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnvString("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.OpenAIAPIKey = getEnvString("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIAPIURL = getEnvString("OPENAI_API_URL", cfg.OpenAIAPIURL)
	cfg.GeminiAPIKey = getEnvString("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.ChatRulesPath = getEnvString("CHAT_RULES_PATH", cfg.ChatRulesPath)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheMaxEntries = getEnvInt("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	cfg.CacheSweepCron = getEnvString("CACHE_SWEEP_CRON", cfg.CacheSweepCron)
	cfg.SQLitePath = getEnvString("SQLITE_PATH", cfg.SQLitePath)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionSweepCron = getEnvString("SESSION_SWEEP_CRON", cfg.SessionSweepCron)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", cfg.TrustProxy)

	// Провайдер по умолчанию выбирается по наличию ключа
	if cfg.LLMProvider == "" {
		switch {
		case cfg.OpenAIAPIKey != "":
			cfg.LLMProvider = "openai"
		case cfg.GeminiAPIKey != "":
			cfg.LLMProvider = "gemini"
		default:
			cfg.LLMProvider = "none"
		}
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:               3000,
		MaxPrincipal:       1e10,
		MaxContribution:    1e8,
		MaxYears:           50,
		MaxRate:            100,
		MinAge:             18,
		MaxAge:             80,
		MaxRetirementAge:   100,
		PayoutMonths:       300,
		MaxPayoffMonths:    600,
		OTELServiceName:    "finassist-server",
		LogLevel:           "INFO",
		LLMTimeout:         30 * time.Second,
		OpenAIAPIURL:       "https://api.openai.com/v1/chat/completions",
		CacheTTL:           10 * time.Minute,
		CacheMaxEntries:    1000,
		CacheSweepCron:     "@every 5m",
		SessionTTL:         2 * time.Hour,
		SessionSweepCron:   "@every 10m",
		RateLimitPerMinute: 60,
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in range 1..65535")
	}
	if c.MaxRate <= 0 || c.MaxRate > 100 {
		return fmt.Errorf("max_rate must be in range (0; 100]")
	}
	if c.MaxYears <= 0 {
		return fmt.Errorf("max_years must be positive")
	}
	if c.MinAge <= 0 || c.MaxAge <= c.MinAge {
		return fmt.Errorf("age limits must satisfy 0 < min_age < max_age")
	}
	if c.MaxRetirementAge <= c.MinAge {
		return fmt.Errorf("max_retirement_age must be greater than min_age")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	if c.PayoutMonths <= 0 {
		return fmt.Errorf("payout_months must be positive")
	}
	if c.MaxPayoffMonths <= 0 {
		return fmt.Errorf("max_payoff_months must be positive")
	}
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for llm_provider=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for llm_provider=gemini")
		}
	case "none":
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
