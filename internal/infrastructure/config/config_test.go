package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Bidding.MaxSaveRetries)
	assert.Equal(t, 2*time.Minute, cfg.Auction.DefaultAntiSnipingWindow)
	assert.Equal(t, 0, cfg.Auction.DefaultMaxExtensions)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BAB_SERVER_PORT", "9999")
	t.Setenv("BAB_BIDDING_LOCK_TTL", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Bidding.LockTTL)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 8080
	cfg.Auction.DefaultAntiSnipingWindow = -time.Second
	assert.Error(t, cfg.Validate())
}
