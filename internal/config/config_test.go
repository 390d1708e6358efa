package config

import (
	"errors"
	"testing"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_KEY", "secret")
	t.Setenv("WEBHOOK_SOLANA", "https://discord.test/hook/1")

	cfg := Load()
	assert.Equal(t, "FetchOnchainBars", cfg.FunctionName)
	assert.Equal(t, BackendLambda, cfg.HostBackend)
	assert.NotEmpty(t, cfg.AWSRegions)
	assert.Equal(t, 3, cfg.MaxAttemptsPerPair)
	assert.Equal(t, 1000.0, cfg.MinLiquidity)
	assert.Equal(t, 61*time.Second, cfg.DispatchInterval)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.False(t, cfg.RunOnce)
	assert.Equal(t, []models.Network{models.Solana}, cfg.Networks())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_KEY", "secret")
	t.Setenv("WEBHOOK_ETH", "https://discord.test/hook/eth")
	t.Setenv("WEBHOOK_BASE", "https://discord.test/hook/base")
	t.Setenv("HOST_BACKEND", "HTTP")
	t.Setenv("HOST_ENDPOINTS", " http://a:9000/invoke , ,http://b:9000/invoke")
	t.Setenv("RUN_ONCE", "true")
	t.Setenv("MAX_PAGES", "4")
	t.Setenv("MIN_LIQUIDITY", "250.5")
	t.Setenv("DISPATCH_INTERVAL", "2s")

	cfg := Load()
	assert.Equal(t, BackendHTTP, cfg.HostBackend)
	assert.Equal(t, []string{"http://a:9000/invoke", "http://b:9000/invoke"}, cfg.HostEndpoints)
	assert.True(t, cfg.RunOnce)
	assert.Equal(t, 4, cfg.MaxPages)
	assert.Equal(t, 250.5, cfg.MinLiquidity)
	assert.Equal(t, 2*time.Second, cfg.DispatchInterval)
	assert.Equal(t, []models.Network{models.Ethereum, models.Base}, cfg.Networks())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AuthKey:         "k",
			Webhooks:        map[models.Network]string{models.Solana: "u"},
			HostBackend:     BackendLambda,
			AWSRegions:      []string{"us-east-1"},
			HostRequestsPer: 10,
			OHLCVLimit:      30,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing auth key", func(c *Config) { c.AuthKey = "" }},
		{"no webhooks", func(c *Config) { c.Webhooks = nil }},
		{"zero requests per min", func(c *Config) { c.HostRequestsPer = 0 }},
		{"unknown backend", func(c *Config) { c.HostBackend = "gcp" }},
		{"http without endpoints", func(c *Config) { c.HostBackend = BackendHTTP }},
		{"negative pages", func(c *Config) { c.MaxPages = -1 }},
	}

	require.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrConfig))
		})
	}
}

func TestValidateWorker(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.ValidateWorker())

	cfg.HTTPTimeout = 0
	assert.True(t, errors.Is(cfg.ValidateWorker(), errs.ErrConfig))
}
