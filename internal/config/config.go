// Package config loads application configuration in three layers:
// built-in defaults, an optional YAML file, then environment variables
// with the IQC_ prefix. Later layers win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	SPC     SPCConfig     `yaml:"spc" envconfig:"SPC"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	ExportDir  string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SPCConfig carries the tunable statistical defaults. Both thresholds are
// industry conventions, configurable per deployment.
type SPCConfig struct {
	SubgroupSize     int     `yaml:"subgroup_size" envconfig:"SUBGROUP_SIZE"`
	CpkThreshold     float64 `yaml:"cpk_threshold" envconfig:"CPK_THRESHOLD"`
	OutlierThreshold float64 `yaml:"outlier_threshold" envconfig:"OUTLIER_THRESHOLD"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
			AllowedOrigins:  []string{"http://localhost:8080"},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/iqc.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "reports_history",
			ExportDir:  "exports",
			LogsDir:    "logs",
		},
		SPC: SPCConfig{
			SubgroupSize:     5,
			CpkThreshold:     1.33,
			OutlierThreshold: 3.0,
		},
	}
}

// Load reads configuration: defaults, then the YAML file named by
// IQC_CONFIG_FILE (default config.yaml) when it exists, then environment
// variables.
func Load() (*Config, error) {
	cfg := Default()

	configFile := os.Getenv("IQC_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("IQC", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.SPC.SubgroupSize < 2 {
		return fmt.Errorf("invalid subgroup size: %d", c.SPC.SubgroupSize)
	}
	if c.SPC.CpkThreshold <= 0 {
		return fmt.Errorf("invalid cpk threshold: %g", c.SPC.CpkThreshold)
	}
	if c.SPC.OutlierThreshold <= 0 {
		return fmt.Errorf("invalid outlier threshold: %g", c.SPC.OutlierThreshold)
	}
	return nil
}
