package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds process-level settings sourced from the environment.
// Billing behavior knobs (notice days, late fee) live in the settings
// store, not here, so they can change without a restart.
type Config struct {
	Environment          string        `mapstructure:"RECAUDO_ENVIRONMENT"`
	ServiceVersion       string        `mapstructure:"RECAUDO_SERVICE_VERSION"`
	HTTPAddr             string        `mapstructure:"RECAUDO_HTTP_ADDR"`
	DatabaseURL          string        `mapstructure:"RECAUDO_DATABASE_URL"`
	SweepInterval        time.Duration `mapstructure:"RECAUDO_SWEEP_INTERVAL"`
	SweepEnabled         bool          `mapstructure:"RECAUDO_SWEEP_ENABLED"`
	TelegramBotToken     string        `mapstructure:"RECAUDO_TELEGRAM_BOT_TOKEN"`
	TelegramAPIBase      string        `mapstructure:"RECAUDO_TELEGRAM_API_BASE"`
	TracingEnabled       bool          `mapstructure:"RECAUDO_TRACING_ENABLED"`
	TracingEndpoint      string        `mapstructure:"RECAUDO_TRACING_ENDPOINT"`
	TracingProtocol      string        `mapstructure:"RECAUDO_TRACING_PROTOCOL"`
	TracingSamplingRatio float64       `mapstructure:"RECAUDO_TRACING_SAMPLING_RATIO"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	viper.SetDefault("RECAUDO_ENVIRONMENT", "development")
	viper.SetDefault("RECAUDO_SERVICE_VERSION", "dev")
	viper.SetDefault("RECAUDO_HTTP_ADDR", ":8080")
	viper.SetDefault("RECAUDO_SWEEP_INTERVAL", 6*time.Hour)
	viper.SetDefault("RECAUDO_SWEEP_ENABLED", true)
	viper.SetDefault("RECAUDO_TELEGRAM_API_BASE", "https://api.telegram.org")
	viper.SetDefault("RECAUDO_TRACING_ENABLED", false)
	viper.SetDefault("RECAUDO_TRACING_PROTOCOL", "grpc")
	viper.SetDefault("RECAUDO_TRACING_SAMPLING_RATIO", 0.1)
	viper.AutomaticEnv()

	for _, key := range []string{
		"RECAUDO_ENVIRONMENT",
		"RECAUDO_SERVICE_VERSION",
		"RECAUDO_HTTP_ADDR",
		"RECAUDO_DATABASE_URL",
		"RECAUDO_SWEEP_INTERVAL",
		"RECAUDO_SWEEP_ENABLED",
		"RECAUDO_TELEGRAM_BOT_TOKEN",
		"RECAUDO_TELEGRAM_API_BASE",
		"RECAUDO_TRACING_ENABLED",
		"RECAUDO_TRACING_ENDPOINT",
		"RECAUDO_TRACING_PROTOCOL",
		"RECAUDO_TRACING_SAMPLING_RATIO",
	} {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	err := viper.Unmarshal(&cfg)
	return cfg, err
}
