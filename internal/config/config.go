// Package config loads service configuration from a YAML file, an optional
// .env file and PAYCANVAS_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML config path.
const EnvConfigPath = "PAYCANVAS_CONFIG"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// TrustedProxies are the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type GRPCConfig struct {
	// Addr is the health service listener; empty disables it.
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	// DSN is the Postgres connection string; empty selects the in-memory store.
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	// Addr enables the entitlement cache when set.
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	Issuer        string        `yaml:"issuer"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	Leeway        time.Duration `yaml:"leeway"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	LoginRate     float64       `yaml:"login_rate"`
	LoginBurst    int           `yaml:"login_burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FromEnv loads .env if present and then the file named by PAYCANVAS_CONFIG.
func FromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return Load(os.Getenv(EnvConfigPath))
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "paycanvas-api"},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{CacheTTL: 5 * time.Minute},
		Auth: AuthConfig{
			Issuer:        "paycanvas",
			AccessTTL:     60 * time.Minute,
			RefreshTTL:    14 * 24 * time.Hour,
			SweepInterval: time.Hour,
			LoginRate:     1,
			LoginBurst:    10,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"PAYCANVAS_HTTP_ADDR":      &cfg.HTTP.Addr,
		"PAYCANVAS_GRPC_ADDR":      &cfg.GRPC.Addr,
		"PAYCANVAS_PG_DSN":         &cfg.Database.DSN,
		"PAYCANVAS_REDIS_ADDR":     &cfg.Redis.Addr,
		"PAYCANVAS_REDIS_PASSWORD": &cfg.Redis.Password,
		"PAYCANVAS_JWT_SECRET":     &cfg.Auth.JWTSecret,
		"PAYCANVAS_JWT_ISSUER":     &cfg.Auth.Issuer,
		"PAYCANVAS_LOG_LEVEL":      &cfg.Logging.Level,
		"PAYCANVAS_LOG_FORMAT":     &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PAYCANVAS_ACCESS_TTL":     &cfg.Auth.AccessTTL,
		"PAYCANVAS_REFRESH_TTL":    &cfg.Auth.RefreshTTL,
		"PAYCANVAS_TOKEN_LEEWAY":   &cfg.Auth.Leeway,
		"PAYCANVAS_SWEEP_INTERVAL": &cfg.Auth.SweepInterval,
		"PAYCANVAS_CACHE_TTL":      &cfg.Redis.CacheTTL,
	}
	var errs []string
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		*dst = d
	}

	if v := os.Getenv("PAYCANVAS_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PAYCANVAS_AUTO_MIGRATE: %v", err))
		} else {
			cfg.Database.AutoMigrate = b
		}
	}
	if v := os.Getenv("PAYCANVAS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("PAYCANVAS_TRUSTED_PROXIES"); v != "" {
		cfg.HTTP.TrustedProxies = splitList(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("environment overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, "http.addr is required")
	}
	for _, p := range c.HTTP.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Sprintf("http.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, "auth.jwt_secret is required (set PAYCANVAS_JWT_SECRET)")
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, "auth.access_ttl must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		errs = append(errs, "auth.refresh_ttl must be positive")
	}
	if c.Auth.Leeway < 0 || (c.Auth.AccessTTL > 0 && c.Auth.Leeway >= c.Auth.AccessTTL) {
		errs = append(errs, "auth.leeway must be non-negative and shorter than auth.access_ttl")
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		errs = append(errs, "auth.login_rate and auth.login_burst must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, "logging.format must be json or console")
	}
	if c.Redis.DB < 0 {
		errs = append(errs, "redis.db must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
