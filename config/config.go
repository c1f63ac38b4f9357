package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	IBFlow   IBFlowConfig   `yaml:"ibflow"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Contract ContractConfig `yaml:"contract"`
}

type IBFlowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type GatewayConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ClientID      int    `yaml:"client_id"`
	ServerVersion int    `yaml:"server_version"`
}

type EngineConfig struct {
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type TimeoutsConfig struct {
	Verify   time.Duration `yaml:"verify"`
	Snapshot time.Duration `yaml:"snapshot"`
	Chain    time.Duration `yaml:"chain"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Region         string        `yaml:"region"`
	Namespace      string        `yaml:"namespace"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

type ContractConfig struct {
	// RequiredFieldsPath points at the per-security-type required field
	// table. Empty means built-in defaults.
	RequiredFieldsPath string `yaml:"required_fields_path"`
	ReferenceCurrency  string `yaml:"reference_currency"`
}

// LoadConfig reads, parses and validates the yaml configuration at
// path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 4002,
		},
		Engine: EngineConfig{
			Timeouts: TimeoutsConfig{
				Verify:   1 * time.Second,
				Snapshot: 5 * time.Second,
				Chain:    1 * time.Second,
			},
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 40,
				BurstSize:         10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			ReportInterval: 60 * time.Second,
		},
		Contract: ContractConfig{
			ReferenceCurrency: "USD",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("IB_GATEWAY_HOST"); v != "" {
		config.Gateway.Host = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" && config.Metrics.Region == "" {
		config.Metrics.Region = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Gateway.Host == "" {
		return fmt.Errorf("gateway.host must not be empty")
	}
	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port %d out of range", cfg.Gateway.Port)
	}
	if cfg.Gateway.ClientID < 0 {
		return fmt.Errorf("gateway.client_id must not be negative")
	}
	if cfg.Engine.Timeouts.Verify <= 0 {
		return fmt.Errorf("engine.timeouts.verify must be positive")
	}
	if cfg.Engine.Timeouts.Snapshot <= 0 {
		return fmt.Errorf("engine.timeouts.snapshot must be positive")
	}
	if cfg.Engine.Timeouts.Chain <= 0 {
		return fmt.Errorf("engine.timeouts.chain must be positive")
	}
	if cfg.Engine.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("engine.rate_limit.requests_per_second must not be negative")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ReportInterval <= 0 {
		return fmt.Errorf("metrics.report_interval must be positive when metrics are enabled")
	}
	return nil
}
