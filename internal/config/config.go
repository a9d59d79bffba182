package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultRefreshMinutes is the full-refresh interval applied when the
	// configured value is missing or non-positive.
	DefaultRefreshMinutes = 10

	// MinRefreshMinutes is the smallest interval accepted from config.
	MinRefreshMinutes = 1

	envPrefix = "UP_BRIDGE_"
)

// Config is the full up-bridge configuration. The Webhook section is written
// back to the config file once the remote webhook has been provisioned.
type Config struct {
	Token          string        `koanf:"token" yaml:"token"`
	RefreshMinutes int           `koanf:"refresh_minutes" yaml:"refresh_minutes"`
	ExternalURL    string        `koanf:"external_url" yaml:"external_url"`
	Port           string        `koanf:"port" yaml:"port"`
	LogLevel       string        `koanf:"log_level" yaml:"log_level"`
	Webhook        WebhookConfig `koanf:"webhook" yaml:"webhook"`
}

// WebhookConfig holds the persisted webhook registration plus teardown
// behavior. RemoteID, CallbackID and Secret are empty until the first
// successful provisioning.
type WebhookConfig struct {
	RemoteID         string `koanf:"remote_id" yaml:"remote_id,omitempty"`
	CallbackID       string `koanf:"callback_id" yaml:"callback_id,omitempty"`
	Secret           string `koanf:"secret" yaml:"secret,omitempty"`
	DeleteOnShutdown bool   `koanf:"delete_on_shutdown" yaml:"delete_on_shutdown"`
}

func defaultConfig() Config {
	return Config{
		RefreshMinutes: DefaultRefreshMinutes,
		Port:           "9447",
		LogLevel:       "info",
	}
}

// Load reads configuration in priority order: defaults, then the YAML file
// at path (if it exists), then UP_BRIDGE_* environment variables. Nested
// keys use a double underscore, e.g. UP_BRIDGE_WEBHOOK__SECRET.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// envTransform maps UP_BRIDGE_WEBHOOK__SECRET to webhook.secret and
// UP_BRIDGE_REFRESH_MINUTES to refresh_minutes.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) normalize() {
	if c.RefreshMinutes < MinRefreshMinutes {
		c.RefreshMinutes = DefaultRefreshMinutes
	}
	c.ExternalURL = strings.TrimRight(c.ExternalURL, "/")
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: up API token is required")
	}
	if c.ExternalURL == "" {
		return errors.New("config: external_url is required for webhook callbacks")
	}
	return nil
}
