package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

// Supported values for Config.Store.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

const envPrefix = "SUBWAY_"

type Config struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`

	// Store selects the persistence backend: memory, file or postgres.
	Store    string `koanf:"store"`
	DataFile string `koanf:"data_file"`
	DBUrl    string `koanf:"db_url"`

	// RedisAddr enables the Redis ranking index and pub/sub feed when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`

	AllowedOrigins []string `koanf:"allowed_origins"`
	StaticDir      string   `koanf:"static_dir"`

	QueryTimeout    time.Duration `koanf:"query_timeout"`
	ReindexSchedule string        `koanf:"reindex_schedule"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		Store:           StoreMemory,
		DataFile:        "data/players.json",
		TokenTTL:        24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
		AllowedOrigins:  []string{"*"},
		StaticDir:       "public",
		QueryTimeout:    2 * time.Second,
		ReindexSchedule: "@every 5m",
	}
}

// LoadConfig layers defaults, an optional YAML file named by SUBWAY_CONFIG and
// SUBWAY_* environment variables. A .env file is loaded into the environment first.
func LoadConfig(_ context.Context) (Config, error) {
	// Missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyEnv(k, &cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyLegacyEnv honours the unprefixed variables older deployments set
// (PORT, DB_URL, JWT_SECRET, REDIS_ADDR, ALLOWED_ORIGINS).
func applyLegacyEnv(k *koanf.Koanf, cfg *Config) {
	if port := os.Getenv("PORT"); port != "" && !k.Exists("addr") {
		cfg.Addr = ":" + port
	}
	if v := os.Getenv("DB_URL"); v != "" && cfg.DBUrl == "" {
		cfg.DBUrl = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" && cfg.JWTSecret == "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && cfg.RedisAddr == "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" && cfg.RedisPassword == "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" && !k.Exists("allowed_origins") {
		cfg.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must not be empty")
	case c.Store != StoreMemory && c.Store != StoreFile && c.Store != StorePostgres:
		return fmt.Errorf("unknown store %q: want memory, file or postgres", c.Store)
	case c.Store == StoreFile && c.DataFile == "":
		return errors.New("data_file is required for the file store")
	case c.Store == StorePostgres && c.DBUrl == "":
		return errors.New("db_url is required for the postgres store")
	case c.Store != StoreMemory && c.JWTSecret == "":
		return errors.New("jwt_secret is required outside the memory store")
	case c.TokenTTL <= 0:
		return errors.New("token_ttl must be positive")
	case c.QueryTimeout <= 0:
		return errors.New("query_timeout must be positive")
	case c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// RedisEnabled reports whether a Redis address was configured.
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// StoreLocation is the data file or DSN the selected store opens.
func (c Config) StoreLocation() string {
	switch c.Store {
	case StoreFile:
		return c.DataFile
	case StorePostgres:
		return c.DBUrl
	}
	return ""
}
