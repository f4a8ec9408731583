// Package config loads runtime settings for the form wizard from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/announce"
	"github.com/goliatone/go-formwizard/pkg/debounce"
	"github.com/goliatone/go-formwizard/pkg/i18n"
)

// EnvPrefix prefixes environment overrides, e.g. FORMWIZARD_LOCALE.
const EnvPrefix = "FORMWIZARD_"

// Config is the full runtime configuration.
type Config struct {
	Locale     string        `yaml:"locale" mapstructure:"locale"`
	Debounce   time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Expiry     time.Duration `yaml:"announcement_expiry" mapstructure:"announcement_expiry"`
	Submit     Submit        `yaml:"submit" mapstructure:"submit"`
	Uniqueness Uniqueness    `yaml:"uniqueness" mapstructure:"uniqueness"`
	Metrics    Metrics       `yaml:"metrics" mapstructure:"metrics"`
	Log        Log           `yaml:"log" mapstructure:"log"`
}

// Submit configures the submission endpoint.
type Submit struct {
	Endpoint string            `yaml:"endpoint" mapstructure:"endpoint"`
	Method   string            `yaml:"method" mapstructure:"method"`
	Timeout  time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers  map[string]string `yaml:"headers" mapstructure:"headers"`
}

// Uniqueness selects and configures the uniqueness backend. When both are
// set Redis wins.
type Uniqueness struct {
	URL         string `yaml:"url" mapstructure:"url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
	RedisDB     int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// Metrics configures the Prometheus listener. Empty Addr disables it.
type Metrics struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// Log configures logging.
type Log struct {
	Level    string `yaml:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Locale:   i18n.LocaleRU,
		Debounce: debounce.DefaultDelay,
		Expiry:   announce.DefaultExpiry,
		Submit: Submit{
			Method:  "POST",
			Timeout: 10 * time.Second,
		},
		Uniqueness: Uniqueness{RedisPrefix: "formwizard:taken:"},
		Metrics:    Metrics{Namespace: "formwizard"},
		Log:        Log{Level: "info", Encoding: "json"},
	}
}

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid")

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Environ()); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce must be positive", ErrInvalid))
	}
	if c.Expiry <= 0 {
		errs = append(errs, fmt.Errorf("%w: announcement_expiry must be positive", ErrInvalid))
	}
	if c.Submit.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: submit.timeout must not be negative", ErrInvalid))
	}
	if strings.TrimSpace(c.Locale) == "" {
		errs = append(errs, fmt.Errorf("%w: locale is required", ErrInvalid))
	}
	return errors.Join(errs...)
}

// envKeys maps FORMWIZARD_* suffixes onto nested mapstructure paths.
var envKeys = map[string][]string{
	"LOCALE":              {"locale"},
	"DEBOUNCE":            {"debounce"},
	"ANNOUNCEMENT_EXPIRY": {"announcement_expiry"},
	"SUBMIT_ENDPOINT":     {"submit", "endpoint"},
	"SUBMIT_METHOD":       {"submit", "method"},
	"SUBMIT_TIMEOUT":      {"submit", "timeout"},
	"UNIQUENESS_URL":      {"uniqueness", "url"},
	"REDIS_ADDR":          {"uniqueness", "redis_addr"},
	"REDIS_PREFIX":        {"uniqueness", "redis_prefix"},
	"REDIS_DB":            {"uniqueness", "redis_db"},
	"METRICS_ADDR":        {"metrics", "addr"},
	"LOG_LEVEL":           {"log", "level"},
}

func (c *Config) applyEnv(environ []string) error {
	overrides := map[string]any{}
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, known := envKeys[strings.TrimPrefix(name, EnvPrefix)]
		if !known {
			continue
		}
		node := overrides
		for _, part := range path[:len(path)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[path[len(path)-1]] = value
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           c,
	})
	if err != nil {
		return fmt.Errorf("config: env decoder: %w", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("config: env overrides: %w", err)
	}
	return nil
}
