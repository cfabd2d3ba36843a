package application

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GatewayConfig defines payment gateway connectivity and polling.
type GatewayConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffMS   int    `yaml:"backoff_ms"`
}

// Backoff returns the configured base backoff duration.
func (g GatewayConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMS) * time.Millisecond
}

// KafkaConfig defines the optional event relay.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether the relay should run.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Config defines reconciliation configuration.
type Config struct {
	Currency string        `yaml:"currency"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Kafka    KafkaConfig   `yaml:"kafka"`
}

// LoadConfig loads config from yaml or env. RECONCILE_CONFIG points to an
// optional yaml file; env vars fill whatever the file leaves empty.
func LoadConfig() (Config, error) {
	cfg := Config{
		Currency: getenvDefault("LEDGER_CURRENCY", "USD"),
		Gateway: GatewayConfig{
			BaseURL:     getenvDefault("GATEWAY_BASE_URL", "http://localhost:9090"),
			APIKey:      os.Getenv("GATEWAY_API_KEY"),
			MaxAttempts: getenvIntDefault("GATEWAY_MAX_ATTEMPTS", 5),
			BackoffMS:   getenvIntDefault("GATEWAY_BACKOFF_MS", 200),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvDefault("KAFKA_TOPIC", "pos.reconciliation.events"),
		},
	}

	if path := os.Getenv("RECONCILE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Currency == "" {
		return cfg, errors.New("reconcile: currency required")
	}
	if cfg.Gateway.BaseURL == "" {
		return cfg, errors.New("reconcile: gateway base url required")
	}
	if cfg.Gateway.MaxAttempts <= 0 {
		cfg.Gateway.MaxAttempts = 5
	}
	if cfg.Gateway.BackoffMS <= 0 {
		cfg.Gateway.BackoffMS = 200
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
