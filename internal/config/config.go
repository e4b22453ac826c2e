package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/promptarmor/internal/filter"
	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "PROMPTARMOR_CONFIG"

// DefaultDashboardPort is where the dashboard listens and where the
// default telemetry URL points.
const DefaultDashboardPort = 8000

// Config is the on-disk configuration.
type Config struct {
	Targets       []string              `yaml:"targets"`
	Providers     []filter.ProviderRule `yaml:"providers"`
	Patterns      []redact.PatternDef   `yaml:"patterns"`
	ExtraPatterns []redact.PatternDef   `yaml:"extra_patterns"`
	Telemetry     telemetry.Config      `yaml:"telemetry"`
	Dashboard     DashboardConfig       `yaml:"dashboard"`
}

// DashboardConfig configures the dashboard service.
type DashboardConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuditLog       string   `yaml:"audit_log"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Targets:   append([]string(nil), filter.DefaultTargets...),
		Providers: append([]filter.ProviderRule(nil), filter.DefaultProviders...),
		Telemetry: telemetry.Config{
			URL:         fmt.Sprintf("http://127.0.0.1:%d/event", DefaultDashboardPort),
			Timeout:     telemetry.DefaultTimeout,
			MaxInFlight: telemetry.DefaultMaxInFlight,
		},
		Dashboard: DashboardConfig{Port: DefaultDashboardPort},
	}
}

// ResolvePath picks the config file: flag value, then $PROMPTARMOR_CONFIG,
// then ~/.promptarmor/config.yaml. Returns "" if no home directory exists.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".promptarmor", "config.yaml")
}

// Load reads configuration from path and returns it with the sha256 hash
// of the file bytes. A missing file yields DefaultConfig. YAML overwrites
// only the fields it sets. Pattern definitions are validated.
func Load(path string) (*Config, string, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, hashBytes(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.Registry(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, hashBytes(data), nil
}

// Registry compiles the configured pattern registry.
func (c *Config) Registry() (*redact.Registry, error) {
	return redact.CompileRegistry(c.Patterns, c.ExtraPatterns)
}

// Filter builds the configured traffic filter.
func (c *Config) Filter() *filter.Filter {
	return filter.New(c.Targets, c.Providers)
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
