package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// EnvPrefix prefixes every environment override, e.g. CHAT_SERVER_ADDR.
	EnvPrefix = "CHAT_"
)

type Config struct {
	ServerAddr         string        `koanf:"server_addr"`
	DatabaseDSN        string        `koanf:"database_dsn"`
	StoreDriver        string        `koanf:"store_driver"`
	Migrate            bool          `koanf:"migrate"`
	SigningSecret      string        `koanf:"signing_key"`
	SigningKey         []byte        `koanf:"-"`
	AllowedOrigins     []string      `koanf:"allowed_origins"`
	PersistenceTimeout time.Duration `koanf:"persistence_timeout"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	LogLevel           string        `koanf:"log_level"`
	LogFormat          string        `koanf:"log_format"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:         "localhost:8000",
		DatabaseDSN:        "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable",
		StoreDriver:        StoreDriverPostgres,
		Migrate:            true,
		AllowedOrigins:     []string{},
		PersistenceTimeout: 5 * time.Second,
		BreakerFailures:    5,
		BreakerTimeout:     30 * time.Second,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load layers defaults, the optional YAML file at path and CHAT_* environment
// variables, in increasing order of precedence, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "allowed_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// splitList turns a comma separated string (as set from the environment)
// into a list.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}

	items := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}

	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database DSN cannot be empty")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	if c.PersistenceTimeout <= 0 {
		return fmt.Errorf("persistence timeout must be positive")
	}

	return nil
}
