// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Addr        string
	DatabaseURL string

	LogLevel  string
	LogFormat string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	InitialUser     string
	InitialPassword string
}

// Load reads an optional .env file, then the environment. A missing .env file
// is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:        env("ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),

		CORSOrigins:    list(os.Getenv("CORS_ORIGINS")),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 30),

		OIDCIssuer:       os.Getenv("OIDC_ISSUER"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),

		InitialUser:     os.Getenv("INITIAL_USER"),
		InitialPassword: os.Getenv("INITIAL_PASSWORD"),
	}
}

// SSOEnabled reports whether every OIDC setting is present.
func (c *Config) SSOEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCClientSecret != "" && c.OIDCRedirectURL != ""
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
