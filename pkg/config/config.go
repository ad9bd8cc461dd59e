package config

import (
	"time"

	"github.com/careagent/medai/internal/domain"
)

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Redis          RedisConfig          `mapstructure:"redis"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	Backend        BackendConfig        `mapstructure:"backend"`
	TTS            TTSConfig            `mapstructure:"tts"`
	Intent         IntentConfig         `mapstructure:"intent"`
	LabRanges      LabRangesConfig      `mapstructure:"lab_ranges"`
	Vault          VaultConfig          `mapstructure:"vault"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimiting   RateLimitingConfig   `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	BodyLimit      int           `mapstructure:"body_limit"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// OpenAIConfig configures every capability adapter backed by the AI
// provider. The key is an opaque credential and must never be logged.
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	STTModel        string        `mapstructure:"stt_model"`
	TTSModel        string        `mapstructure:"tts_model"`
	ExtractionModel string        `mapstructure:"extraction_model"`
	VisionModel     string        `mapstructure:"vision_model"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// BackendConfig configures the read-only backend collaborator client.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AccessToken    string        `mapstructure:"access_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

type TTSConfig struct {
	DefaultVoice string  `mapstructure:"default_voice"`
	DefaultSpeed float64 `mapstructure:"default_speed"`
	MaxTextLen   int     `mapstructure:"max_text_len"`
}

type IntentConfig struct {
	// ConfidenceThreshold below which the intent collapses to unknown.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// LabRangesConfig is the static reference-range table keyed by test name.
type LabRangesConfig struct {
	Ranges map[string]domain.ReferenceRange `mapstructure:"ranges"`
}

type VaultConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

type OpenTelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	ExposeHeaders  []string `mapstructure:"expose_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}
