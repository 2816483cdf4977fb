// Package config loads service configuration from the environment (TXX_
// prefix) with an optional config.yaml next to the binary. Environment
// variables win over file values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the extraction service needs at startup.
type Config struct {
	HTTPPort string `mapstructure:"http_port"`

	// Gemini settings for both the completion adapter and the OCR provider.
	GeminiAPIKey    string  `mapstructure:"gemini_api_key"`
	CompletionModel string  `mapstructure:"completion_model"`
	VisionModel     string  `mapstructure:"vision_model"`
	Temperature     float32 `mapstructure:"temperature"`

	// Token ceilings per entry point.
	MessageMaxTokens   int `mapstructure:"message_max_tokens"`
	StatementMaxTokens int `mapstructure:"statement_max_tokens"`

	// Google Cloud persistence and blob storage.
	GCPProject string `mapstructure:"gcp_project"`
	BQDataset  string `mapstructure:"bq_dataset"`
	GCSBucket  string `mapstructure:"gcs_bucket"`

	// Receipt OCR worker pool.
	WorkerCount int `mapstructure:"worker_count"`
	QueueSize   int `mapstructure:"queue_size"`

	// Per-user AI budget: requests per window.
	UserRateLimit  int           `mapstructure:"user_rate_limit"`
	UserRateWindow time.Duration `mapstructure:"user_rate_window"`
}

// Load reads configuration. Missing file is fine; env alone is enough.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", "8080")
	v.SetDefault("completion_model", "gemini-2.5-flash")
	v.SetDefault("vision_model", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("message_max_tokens", 500)
	v.SetDefault("statement_max_tokens", 4000)
	v.SetDefault("bq_dataset", "finance")
	v.SetDefault("worker_count", 5)
	v.SetDefault("queue_size", 100)
	v.SetDefault("user_rate_limit", 30)
	v.SetDefault("user_rate_window", time.Minute)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TXX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
