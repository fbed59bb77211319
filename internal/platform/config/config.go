// Package config loads runtime configuration: built-in defaults, then an
// optional YAML file, then UAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	dErrors "uadcheck/pkg/domain-errors"
)

// DefaultRulesetVersion is reported in results unless overridden.
const DefaultRulesetVersion = "1.1.0"

// Config is the full runtime configuration.
type Config struct {
	RulesetVersion string `yaml:"ruleset_version" env:"UAD_RULESET_VERSION"`
	Rules          Rules  `yaml:"rules"`
	Log            Log    `yaml:"log"`
}

// Rules locates the rule documents. An empty Dir selects the embedded
// built-in documents; paths are relative to the rules root.
type Rules struct {
	Dir           string `yaml:"dir" env:"UAD_RULES_DIR"`
	SchemaPath    string `yaml:"schema" env:"UAD_SCHEMA_PATH"`
	RegistryPath  string `yaml:"registry" env:"UAD_REGISTRY_PATH"`
	SignaturePath string `yaml:"signature_requirements" env:"UAD_SIGNATURE_PATH"`
	PhotoPath     string `yaml:"photo_inventory" env:"UAD_PHOTO_PATH"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" env:"UAD_LOG_LEVEL"`
	Format string `yaml:"format" env:"UAD_LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RulesetVersion: DefaultRulesetVersion,
		Rules: Rules{
			SchemaPath:    "schema/uad_1004_v1.json",
			RegistryPath:  "registry/fields.json",
			SignaturePath: "registry/signature_requirements.json",
			PhotoPath:     "registry/photo_inventory.json",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (*Config, error) {
	return load(path, env.Options{})
}

// LoadWithEnv is Load with an explicit environment instead of the
// process environment.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	return load(path, env.Options{Environment: environ})
}

func load(path string, opts env.Options) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, "parse environment")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return dErrors.Wrap(err, dErrors.CodeConfigNotFound, fmt.Sprintf("config file %s not found", path))
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("read config file %s", path))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("decode config file %s", path))
	}
	return nil
}

func (c *Config) normalize() {
	c.RulesetVersion = strings.TrimSpace(c.RulesetVersion)
	c.Rules.Dir = strings.TrimSpace(c.Rules.Dir)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RulesetVersion == "" {
		return dErrors.New(dErrors.CodeConfigInvalid, "ruleset_version must not be empty")
	}
	if strings.TrimSpace(c.Rules.SchemaPath) == "" {
		return dErrors.New(dErrors.CodeConfigInvalid, "rules.schema must not be empty")
	}
	if strings.TrimSpace(c.Rules.RegistryPath) == "" {
		return dErrors.New(dErrors.CodeConfigInvalid, "rules.registry must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return dErrors.New(dErrors.CodeConfigInvalid, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return dErrors.New(dErrors.CodeConfigInvalid, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return nil
}
