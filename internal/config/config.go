// config предоставляет структуру конфигурации myoutfood
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Limits    LimitsConfig    `yaml:"limits"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	FalAI     FalAIConfig     `yaml:"falai"`
	Places    PlacesConfig    `yaml:"places"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	History   HistoryConfig   `yaml:"history"`
	S3        S3Config        `yaml:"s3"`
	Identity  IdentityConfig  `yaml:"identity"`
	Recaptcha RecaptchaConfig `yaml:"recaptcha"`
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
	// TrustProxy — брать IP клиента из X-Forwarded-For/X-Real-IP (за балансировщиком).
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// TimeoutConfig — таймауты сервиса.
// Service ограничивает весь прогон конвейера (три внешних вызова + поллинг).
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"120s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// LimitsConfig — лимиты приёма и окна rate-limit.
type LimitsConfig struct {
	Window           time.Duration `yaml:"window" env:"LIMITS_WINDOW" env-default:"60s"`
	MaxRequests      int           `yaml:"max_requests" env:"LIMITS_MAX_REQUESTS" env-default:"5"`
	MaxImageBytes    int64         `yaml:"max_image_bytes" env:"LIMITS_MAX_IMAGE_BYTES" env-default:"10485760"`
	AllowedMIMETypes []string      `yaml:"allowed_mime_types" env:"LIMITS_ALLOWED_MIME_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/gif,image/webp"`
	MaxPromptLen     int           `yaml:"max_prompt_len" env:"LIMITS_MAX_PROMPT_LEN" env-default:"500"`
	HistorySize      int           `yaml:"history_size" env:"LIMITS_HISTORY_SIZE" env-default:"50"`
}

// GeminiConfig — Captioner (Gemini API через genai).
type GeminiConfig struct {
	APIKey     string `yaml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL    string `yaml:"base_url" env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/"`
	APIVersion string `yaml:"api_version" env:"GEMINI_API_VERSION" env-default:"v1beta"`
	Model      string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
}

// FalAIConfig — ImageGenerator (очередь fal.ai).
type FalAIConfig struct {
	APIKey       string        `yaml:"api_key" env:"FAL_KEY"`
	BaseURL      string        `yaml:"base_url" env:"FAL_BASE_URL" env-default:"https://queue.fal.run"`
	Model        string        `yaml:"model" env:"FAL_MODEL" env-default:"fal-ai/flux/schnell"`
	ImageSize    string        `yaml:"image_size" env:"FAL_IMAGE_SIZE" env-default:"landscape_4_3"`
	PollInterval time.Duration `yaml:"poll_interval" env:"FAL_POLL_INTERVAL" env-default:"1s"`
	Deadline     time.Duration `yaml:"deadline" env:"FAL_DEADLINE" env-default:"60s"`
}

// PlacesConfig — PlaceFinder (OpenAI-совместимый endpoint).
type PlacesConfig struct {
	APIKey  string `yaml:"api_key" env:"PLACES_API_KEY"`
	BaseURL string `yaml:"base_url" env:"PLACES_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	Model   string `yaml:"model" env:"PLACES_MODEL" env-default:"gemini-1.5-flash"`
}

// BreakerConfig — параметры circuit breaker вокруг стадий.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests" env:"BREAKER_MAX_REQUESTS" env-default:"1"`
	Interval     time.Duration `yaml:"interval" env:"BREAKER_INTERVAL" env-default:"60s"`
	Timeout      time.Duration `yaml:"timeout" env:"BREAKER_TIMEOUT" env-default:"30s"`
	FailureRatio float64       `yaml:"failure_ratio" env:"BREAKER_FAILURE_RATIO" env-default:"0.6"`
	MinRequests  uint32        `yaml:"min_requests" env:"BREAKER_MIN_REQUESTS" env-default:"5"`
}

// Бэкенды слота истории.
const (
	HistoryBackendMemory = "memory"
	HistoryBackendRedis  = "redis"
)

// HistoryConfig — бэкенд слота истории.
type HistoryConfig struct {
	Backend  string `yaml:"backend" env:"HISTORY_BACKEND" env-default:"memory"`
	RedisURL string `yaml:"redis_url" env:"HISTORY_REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"HISTORY_PREFIX" env-default:"myoutfood_history"`
}

// S3Config — архив сгенерированных inline-изображений.
type S3Config struct {
	Enabled       bool   `yaml:"enabled" env:"S3_ENABLED" env-default:"false"`
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// IdentityConfig — проверка bearer JWT внешнего провайдера.
type IdentityConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"IDENTITY_JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"IDENTITY_ISSUER"`
}

// RecaptchaConfig — проверка бота на входе.
type RecaptchaConfig struct {
	Enabled   bool    `yaml:"enabled" env:"RECAPTCHA_ENABLED" env-default:"false"`
	Secret    string  `yaml:"secret" env:"RECAPTCHA_SECRET"`
	VerifyURL string  `yaml:"verify_url" env:"RECAPTCHA_VERIFY_URL" env-default:"https://www.google.com/recaptcha/api/siteverify"`
	MinScore  float64 `yaml:"min_score" env:"RECAPTCHA_MIN_SCORE" env-default:"0.5"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// Во всех случаях поверх файла накладывается ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}

	if p, err := strconv.Atoi(c.HTTP.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("http.port must be a valid TCP port (1..65535)")
	}

	if c.Limits.Window <= 0 {
		return fmt.Errorf("limits.window must be > 0")
	}

	if c.Limits.MaxRequests <= 0 {
		return fmt.Errorf("limits.max_requests must be > 0")
	}

	if c.Limits.MaxImageBytes <= 0 {
		return fmt.Errorf("limits.max_image_bytes must be > 0")
	}

	if len(c.Limits.AllowedMIMETypes) == 0 {
		return fmt.Errorf("limits.allowed_mime_types must not be empty")
	}

	if c.Limits.MaxPromptLen <= 0 {
		return fmt.Errorf("limits.max_prompt_len must be > 0")
	}

	if c.Limits.HistorySize <= 0 {
		return fmt.Errorf("limits.history_size must be > 0")
	}

	if c.FalAI.PollInterval <= 0 || c.FalAI.Deadline <= 0 {
		return fmt.Errorf("falai.poll_interval and falai.deadline must be > 0")
	}

	if c.FalAI.PollInterval > c.FalAI.Deadline {
		return fmt.Errorf("falai.poll_interval must not exceed falai.deadline")
	}

	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0..1]")
	}

	switch c.History.Backend {
	case HistoryBackendMemory:
	case HistoryBackendRedis:
		if c.History.RedisURL == "" {
			return fmt.Errorf("history.redis_url is required for redis backend")
		}
	default:
		return fmt.Errorf("history.backend must be memory or redis, got %q", c.History.Backend)
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			return fmt.Errorf("s3.endpoint is required")
		}

		if c.S3.RootUser == "" || c.S3.RootPassword == "" {
			return fmt.Errorf("s3.root_user and s3.root_password are required")
		}

		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}

		// Ссылки на архив живут в истории без срока, presigned URL истекают.
		if c.S3.PublicBaseURL == "" {
			return fmt.Errorf("s3.public_base_url is required when s3 is enabled")
		}
	}

	if c.Recaptcha.Enabled && c.Recaptcha.Secret == "" {
		return fmt.Errorf("recaptcha.secret is required when recaptcha is enabled")
	}

	if c.Recaptcha.MinScore < 0 || c.Recaptcha.MinScore > 1 {
		return fmt.Errorf("recaptcha.min_score must be in [0..1]")
	}

	// Ключи внешних сервисов обязательны вне локального окружения.
	if c.Env != "local" {
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key is required")
		}

		if c.FalAI.APIKey == "" {
			return fmt.Errorf("falai.api_key is required")
		}

		if c.Places.APIKey == "" {
			return fmt.Errorf("places.api_key is required")
		}
	}

	return nil
}
