package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Unisphere UnisphereConfig `yaml:"unisphere"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// UnisphereConfig contains Unisphere endpoint connection settings
type UnisphereConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Serial     string   `yaml:"serial"`      // Symmetrix serial number
	APIVersion string   `yaml:"api_version"` // REST path version segment
	VerifyCert bool     `yaml:"verify_cert"`
	Timeout    Duration `yaml:"timeout"`        // HTTP timeout for Unisphere requests
	RateLimit  float64  `yaml:"rate_limit_rps"` // Outbound request rate limit
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// LedgerConfig contains run history settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables, credentials usually come from the env
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if cfg.Unisphere.Host == "" {
		return nil, fmt.Errorf("unisphere.host is required")
	}
	if cfg.Unisphere.Serial == "" {
		return nil, fmt.Errorf("unisphere.serial is required")
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./unihost.sqlite"
	}

	// Unisphere defaults
	if cfg.Unisphere.Port == 0 {
		cfg.Unisphere.Port = 8443
	}
	if cfg.Unisphere.APIVersion == "" {
		cfg.Unisphere.APIVersion = "100"
	}
	if cfg.Unisphere.Timeout == 0 {
		cfg.Unisphere.Timeout = Duration(120 * time.Second)
	}
	if cfg.Unisphere.RateLimit == 0 {
		cfg.Unisphere.RateLimit = 10.0
	}

	// Ledger defaults
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 90
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
