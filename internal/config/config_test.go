package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePercents(t *testing.T) {
	got, err := ParsePercents("5, 3,1%")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "5", got[0].String())
	assert.Equal(t, "3", got[1].String())
	assert.Equal(t, "1", got[2].String())

	got, err = ParsePercents("2.5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", got[0].String())

	got, err = ParsePercents("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParsePercentsRejectsGarbage(t *testing.T) {
	_, err := ParsePercents("5,x")
	assert.Error(t, err)

	_, err = ParsePercents("-1")
	assert.Error(t, err)

	_, err = ParsePercents("101")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PURCHASE_LEVEL_PERCENTS", "")
	t.Setenv("COMMISSION_BASE", "")
	t.Setenv("REQUIRE_REFERRER", "")
	t.Setenv("TREE_MAX_DEPTH", "")
	t.Setenv("ADMIN_WALLETS", " 0xABC , ,0xdef")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Storage)
	assert.Len(t, cfg.PurchaseLevelPercents, 3)
	assert.Empty(t, cfg.StakeLevelPercents)
	assert.Equal(t, BaseTokens, cfg.CommissionBase)
	assert.True(t, cfg.RequireReferrer)
	assert.Equal(t, 10, cfg.TreeMaxDepth)
	assert.Equal(t, int32(18), cfg.LedgerDecimals)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.AdminWallets)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PURCHASE_LEVEL_PERCENTS", "10,5")
	t.Setenv("STAKE_LEVEL_PERCENTS", "1")
	t.Setenv("COMMISSION_BASE", "PAID")
	t.Setenv("REQUIRE_REFERRER", "false")
	t.Setenv("API_RATE_WINDOW_SECONDS", "5")

	cfg := Load()

	assert.Len(t, cfg.PurchaseLevelPercents, 2)
	assert.Len(t, cfg.StakeLevelPercents, 1)
	assert.Equal(t, BasePaid, cfg.CommissionBase)
	assert.False(t, cfg.RequireReferrer)
	assert.Equal(t, 5*time.Second, cfg.APIRateWindow)
}
