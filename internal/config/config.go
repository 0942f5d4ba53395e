// Package config loads and validates runtime configuration.
//
// Defaults come from DefaultAppConfig; environment variables with the
// VIDRELAY_ prefix override them (VIDRELAY_ADDR, VIDRELAY_DATA_DIR,
// VIDRELAY_RETENTION, ...). Durations accept Go syntax ("30m", "1h").
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "VIDRELAY_"

// Config is the complete runtime configuration for the service.
type Config struct {
	// Addr is the listen address, host optional ("127.0.0.1:8080", ":8080").
	Addr string `koanf:"addr" validate:"required,ip_port"`
	// DataDir is the root directory for stored media and metrics state.
	DataDir string `koanf:"data_dir" validate:"required,data_dir"`
	// BaseURL is the external base used when composing download URLs.
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// Retention is how long a stored file is kept before reaping.
	Retention time.Duration `koanf:"retention" validate:"required,gt=0"`
	// URLValidity is how long an issued download URL authenticates.
	URLValidity time.Duration `koanf:"url_validity" validate:"required,gt=0"`
	// ReapInterval is the period between reaper cycles.
	ReapInterval time.Duration `koanf:"reap_interval" validate:"required,gt=0"`
	// MetricsFlushInterval is the period between metric flushes to disk.
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval" validate:"required,gt=0"`
	// MaxBodyBytes caps the size of accepted request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`
	// MetricsToken, when set, bearer-protects the metrics endpoint.
	MetricsToken string `koanf:"metrics_token"`
}

// DefaultAppConfig holds the built-in defaults applied before any
// environment overrides.
var DefaultAppConfig = Config{
	Addr:                 ":8080",
	DataDir:              "./data",
	BaseURL:              "http://localhost:8080",
	Retention:            time.Hour,
	URLValidity:          30 * time.Minute,
	ReapInterval:         5 * time.Minute,
	MetricsFlushInterval: 5 * time.Second,
	MaxBodyBytes:         1 << 20,
}

// Indirection points for the loading pipeline, swappable in tests.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
	}
	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: envPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
			},
		}), nil)
	}
	registerValidators = func(v *validator.Validate) error {
		if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
			return err
		}
		return v.RegisterValidation("data_dir", validDataDir)
	}
)

// Load builds the effective configuration from defaults and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.URLValidity > cfg.Retention {
		return nil, errors.New("url_validity must not exceed retention")
	}

	return &cfg, nil
}

// FilesDir is the directory holding downloaded media files.
func (c *Config) FilesDir() string {
	return filepath.Join(c.DataDir, "files")
}

// ScratchDir is the working directory for in-progress extractions and
// staged credentials.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.DataDir, "scratch")
}

// MetricsDSN returns the SQLite DSN for the metrics database inside
// DataDir.
func (c *Config) MetricsDSN() string {
	path := filepath.Join(c.DataDir, "metrics.db")
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
}

// validIPPort accepts "host:port" where host is empty or a literal IP
// and port is 1-65535. Hostnames are rejected; the listen address is
// not resolved.
func validIPPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return false
	}
	if host == "" {
		return true
	}
	return net.ParseIP(host) != nil
}

// validDataDir rejects paths that would escape or clobber: empty, the
// current directory, the filesystem root, or anything containing a
// ".." segment.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	clean := filepath.Clean(p)
	if clean == "." || clean == string(filepath.Separator) {
		return false
	}
	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if seg == ".." {
			return false
		}
	}
	return true
}
