package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. COT_SERVER_PORT.
const EnvPrefix = "COT"

// Config represents the complete application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	OTel    OTelConfig    `yaml:"otel" envconfig:"OTEL"`
	Compute ComputeConfig `yaml:"compute" envconfig:"COMPUTE"`
}

// PathsConfig locates inputs and outputs. Relative paths resolve against Root.
type PathsConfig struct {
	Root       string `yaml:"root" envconfig:"ROOT" default:"."`
	Canonical  string `yaml:"canonical" envconfig:"CANONICAL" default:"data/canonical/cot_weekly_canonical_full.csv"`
	Markets    string `yaml:"markets" envconfig:"MARKETS" default:"configs/markets.yaml"`
	ComputeDir string `yaml:"compute_dir" envconfig:"COMPUTE_DIR" default:"data/compute"`
	LockFile   string `yaml:"lock_file" envconfig:"LOCK_FILE" default:".pipeline.lock"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/cot.log"`
}

// ServerConfig contains HTTP server configuration for the read API
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	ReloadInterval  time.Duration   `yaml:"reload_interval" envconfig:"RELOAD_INTERVAL" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// OTelConfig toggles tracing and metrics.
type OTelConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"cot-compute"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// ComputeConfig tunes the batch run and its QA thresholds.
type ComputeConfig struct {
	// OIChangeInfo and OIChangeWarn are |open_interest_chg_1w_pct| levels
	// that raise an INFO or WARN finding.
	OIChangeInfo float64 `yaml:"oi_change_info" envconfig:"OI_CHANGE_INFO" default:"0.35"`
	OIChangeWarn float64 `yaml:"oi_change_warn" envconfig:"OI_CHANGE_WARN" default:"0.50"`
	XLSX         bool    `yaml:"xlsx" envconfig:"XLSX" default:"false"`
}

// Load builds the configuration from defaults, an optional YAML file and
// COT_* environment variables, in increasing order of precedence. An empty
// path searches the usual locations.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		fileConfig, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
		overlay(reflect.ValueOf(&cfg).Elem(), reflect.ValueOf(fileConfig).Elem(), EnvPrefix)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overlay copies every non-zero field of src into dst unless the matching
// environment variable is set, so env values keep precedence over the file.
func overlay(dst, src reflect.Value, prefix string) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		key := prefix + "_" + t.Field(i).Tag.Get("envconfig")
		if dst.Field(i).Kind() == reflect.Struct {
			overlay(dst.Field(i), src.Field(i), key)
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if !src.Field(i).IsZero() {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.ReloadInterval <= 0 {
		return fmt.Errorf("invalid reload interval: %s", c.Server.ReloadInterval)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}
	if c.Compute.OIChangeInfo <= 0 || c.Compute.OIChangeWarn < c.Compute.OIChangeInfo {
		return fmt.Errorf("open interest change thresholds must satisfy 0 < info <= warn")
	}
	if strings.TrimSpace(c.Paths.Canonical) == "" || strings.TrimSpace(c.Paths.Markets) == "" {
		return fmt.Errorf("canonical and markets paths are required")
	}

	// JSON logs only
	c.Logging.Format = "json"
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	return nil
}

// getConfigFilePath returns the first config file found in common locations
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:       ".",
			Canonical:  "data/canonical/cot_weekly_canonical_full.csv",
			Markets:    "configs/markets.yaml",
			ComputeDir: "data/compute",
			LockFile:   ".pipeline.lock",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/cot.log",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			ReloadInterval:  30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		OTel: OTelConfig{
			ServiceName:    "cot-compute",
			MetricsEnabled: true,
		},
		Compute: ComputeConfig{
			OIChangeInfo: 0.35,
			OIChangeWarn: 0.50,
		},
	}
}
