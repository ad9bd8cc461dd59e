package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/careagent/medai/internal/domain"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("MEDAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without the MEDAI_ prefix for container deploys
	viper.BindEnv("http.port", "HTTP_PORT", "MEDAI_HTTP_PORT")
	viper.BindEnv("redis.url", "REDIS_URL", "MEDAI_REDIS_URL")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY", "MEDAI_OPENAI_API_KEY")
	viper.BindEnv("backend.base_url", "BACKEND_API_BASE", "MEDAI_BACKEND_BASE_URL")
	viper.BindEnv("backend.access_token", "BACKEND_ACCESS_TOKEN", "MEDAI_BACKEND_ACCESS_TOKEN")
	viper.BindEnv("vault.address", "VAULT_ADDR")
	viper.BindEnv("vault.token", "VAULT_TOKEN")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults carry the service.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.LabRanges.Ranges) == 0 {
		cfg.LabRanges.Ranges = DefaultLabRanges()
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "medai-service")
	viper.SetDefault("app.version", "v1.0.0")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", 30*time.Second)
	viper.SetDefault("http.write_timeout", 60*time.Second)
	viper.SetDefault("http.body_limit", 25*1024*1024)

	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.stt_model", "whisper-1")
	viper.SetDefault("openai.tts_model", "tts-1")
	viper.SetDefault("openai.extraction_model", "gpt-4o")
	viper.SetDefault("openai.vision_model", "gpt-4o")
	viper.SetDefault("openai.request_timeout", 60*time.Second)

	viper.SetDefault("backend.request_timeout", 10*time.Second)
	viper.SetDefault("backend.cache_ttl", 30*time.Second)

	viper.SetDefault("tts.default_voice", "nova")
	viper.SetDefault("tts.default_speed", 0.9)
	viper.SetDefault("tts.max_text_len", 4000)

	viper.SetDefault("intent.confidence_threshold", 0.6)

	viper.SetDefault("prometheus.enabled", true)
	viper.SetDefault("prometheus.path", "/metrics")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.max_requests", 60)
	viper.SetDefault("rate_limiting.window", time.Minute)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", time.Minute)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_threshold", 0.6)
}

// DefaultLabRanges is the built-in reference-range table, used when the
// config file does not override it. Values are adult reference ranges.
func DefaultLabRanges() map[string]domain.ReferenceRange {
	return map[string]domain.ReferenceRange{
		"blood sugar":    {Min: 3.9, Max: 6.1, Unit: "mmol/L"},
		"glucose":        {Min: 70, Max: 100, Unit: "mg/dL"},
		"hemoglobin":     {Min: 13, Max: 17, Unit: "g/dL"},
		"platelet count": {Min: 150000, Max: 450000, Unit: "/uL"},
		"wbc count":      {Min: 4000, Max: 11000, Unit: "/uL"},
		"creatinine":     {Min: 0.7, Max: 1.3, Unit: "mg/dL"},
		"cholesterol":    {Min: 0, Max: 200, Unit: "mg/dL"},
		"tsh":            {Min: 0.4, Max: 4.0, Unit: "mIU/L"},
	}
}
