package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/velmart",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "PLN", cfg.CurrencyCode)
	require.Equal(t, 2300, cfg.TaxRateBPS)
	require.Equal(t, 5*time.Minute, cfg.SalesCacheTTL)
	require.Equal(t, time.Minute, cfg.SalesRefreshInterval)
	require.Equal(t, "60-M", cfg.ResolveRateLimit)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["CURRENCY_CODE"] = "eur"
	env["TAX_RATE_BPS"] = "1900"
	env["SALES_CACHE_TTL"] = "30s"
	env["PORT"] = "9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "EUR", cfg.CurrencyCode)
	require.Equal(t, 1900, cfg.TaxRateBPS)
	require.Equal(t, 30*time.Second, cfg.SalesCacheTTL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRequiresCoreSettings(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["JWT_SECRET"] = ""
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRejectsBadTaxRate(t *testing.T) {
	env := baseEnv()
	env["TAX_RATE_BPS"] = "20000"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
