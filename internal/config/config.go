// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every externally tunable knob of the service.
type Config struct {
	Addr string

	// Persistence and cache backends.
	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	// Token issuance.
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Request gating.
	IPDenyList     []string
	IPAllowList    []string
	IPAllowEnabled bool
	RateLimitMax   int
	RateLimitEvery time.Duration
}

// Load reads configuration from the environment, with an optional .env file
// for local development. Missing values fall back to defaults; the signing
// key has no default and must be provided.
func Load() (*Config, error) {
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("PASSGATE_ADDR", ":8080"),
		PostgresDSN:    getEnv("PASSGATE_PG_DSN", ""),
		RedisAddr:      getEnv("PASSGATE_REDIS_ADDR", "127.0.0.1:6379"),
		RedisDB:        getEnvInt("PASSGATE_REDIS_DB", 0),
		SigningKey:     getEnv("PASSGATE_SIGNING_KEY", ""),
		Issuer:         getEnv("PASSGATE_TOKEN_ISSUER", "passgate"),
		Audience:       getEnv("PASSGATE_TOKEN_AUDIENCE", "everyone"),
		AccessTTL:      getEnvDuration("PASSGATE_ACCESS_TTL", 2*time.Hour),
		RefreshTTL:     getEnvDuration("PASSGATE_REFRESH_TTL", 7*24*time.Hour),
		IPDenyList:     getEnvList("PASSGATE_IP_DENYLIST"),
		IPAllowList:    getEnvList("PASSGATE_IP_ALLOWLIST"),
		IPAllowEnabled: getEnvBool("PASSGATE_IP_ALLOWLIST_ENABLED", false),
		RateLimitMax:   getEnvInt("PASSGATE_RATE_LIMIT_MAX", 100),
		RateLimitEvery: getEnvDuration("PASSGATE_RATE_LIMIT_WINDOW", time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return errors.New("config: PASSGATE_SIGNING_KEY is required")
	}
	if len(c.SigningKey) < 16 {
		return errors.New("config: signing key must be at least 16 bytes")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("config: refresh TTL must exceed access TTL")
	}
	if c.RateLimitMax <= 0 {
		return errors.New("config: rate limit max must be positive")
	}
	if c.RateLimitEvery <= 0 {
		return errors.New("config: rate limit window must be positive")
	}
	if c.IPAllowEnabled && len(c.IPAllowList) == 0 {
		return errors.New("config: allowlist mode enabled with empty allowlist")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	// Accept either a Go duration ("2h") or a bare number of seconds.
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String renders the config for startup logs with the signing key redacted.
func (c *Config) String() string {
	return fmt.Sprintf("addr=%s redis=%s access_ttl=%s refresh_ttl=%s rate=%d/%s allowlist=%v",
		c.Addr, c.RedisAddr, c.AccessTTL, c.RefreshTTL, c.RateLimitMax, c.RateLimitEvery, c.IPAllowEnabled)
}
