package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "nope")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("OIDC_ISSUER", "")

	c := Load()
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, 5.0, c.RateLimitRPS)
	assert.Equal(t, 30, c.RateLimitBurst)
	assert.Empty(t, c.CORSOrigins)
	assert.False(t, c.SSOEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OIDC_ISSUER", "https://id.example")
	t.Setenv("OIDC_CLIENT_ID", "client")
	t.Setenv("OIDC_CLIENT_SECRET", "secret")
	t.Setenv("OIDC_REDIRECT_URL", "https://app.example/api/auth/sso/callback")

	c := Load()
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORSOrigins)
	assert.Equal(t, 2.5, c.RateLimitRPS)
	assert.True(t, c.SSOEnabled())
}
