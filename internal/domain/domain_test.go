package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  0xAbCdEf0123456789aBCDEF0123456789abcdef01 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", got)

	for _, bad := range []string{"", "0x123", "abc", "0x0000000000000000000000000000000000000000"} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestIsZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress(""))
	assert.True(t, IsZeroAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, IsZeroAddress("0x0000000000000000000000000000000000000001"))
	assert.False(t, IsZeroAddress("garbage"))
}

func TestNormalizeTxHash(t *testing.T) {
	h := fmt.Sprintf("0x%064X", 0xbeef)
	got, err := NormalizeTxHash(h)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("0x%064x", 0xbeef), got)

	for _, bad := range []string{"", "0x", "0x1234", h + "00", "beef"} {
		_, err := NormalizeTxHash(bad)
		assert.ErrorIs(t, err, ErrInvalidTxHash, bad)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("0")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParsePositiveAmount("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	for _, bad := range []string{"", "-1", "one"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}

	v, err = ParsePositiveAmount("0.000000000000000001")
	require.NoError(t, err)
	assert.True(t, v.IsPositive())
}

func TestPercentOf(t *testing.T) {
	assert.True(t, PercentOf(d("1000"), d("5"), 18).Equal(d("50")))
	assert.True(t, PercentOf(d("2.5"), d("5"), 18).Equal(d("0.125")))
	// truncated, never rounded up
	assert.True(t, PercentOf(d("0.000000000000000019"), d("10"), 18).Equal(d("0.000000000000000001")))
	assert.True(t, PercentOf(d("0.000000000000000009"), d("10"), 18).IsZero())
}

func TestSimpleInterest(t *testing.T) {
	assert.True(t, SimpleInterest(d("1000"), 1200, 365, 18).Equal(d("120")))
	assert.True(t, SimpleInterest(d("1000"), 1200, 30, 2).Equal(d("9.86")))
	assert.True(t, SimpleInterest(d("1000"), 0, 30, 18).IsZero())
	assert.True(t, SimpleInterest(d("0"), 1200, 30, 18).IsZero())

	half := int64(365 * SecondsPerDay / 2)
	assert.True(t, ProRataInterest(d("1000"), 1200, half, 18).Equal(d("60")))
	assert.True(t, ProRataInterest(d("1000"), 1200, -5, 18).IsZero())
}

func TestParseCurrency(t *testing.T) {
	for in, want := range map[string]Currency{"": CurrencyNative, "bnb": CurrencyNative, "native": CurrencyNative, " usdt ": CurrencyStable, "STABLE": CurrencyStable} {
		got, ok := ParseCurrency(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseCurrency("ETH")
	assert.False(t, ok)
}

func TestStakeLifecycleHelpers(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &Stake{StartAt: start, UnlockAt: start.Add(24 * time.Hour), Status: StakeStatusActive}

	assert.False(t, st.Matured(start))
	assert.True(t, st.Matured(st.UnlockAt))
	assert.False(t, st.Status.Terminal())
	assert.True(t, StakeStatusClaimed.Terminal())
	assert.True(t, StakeStatusWithdrawnPenalized.Terminal())

	stage := &IcoStage{StartAt: start, EndAt: start.Add(time.Hour)}
	assert.True(t, stage.ActiveAt(start))
	assert.False(t, stage.ActiveAt(stage.EndAt))
	assert.False(t, stage.ActiveAt(start.Add(-time.Second)))
}

func TestErrorClassification(t *testing.T) {
	err := fmt.Errorf("%w: stake 3", ErrAlreadyFinalized)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "already_finalized", CodeOf(err))
	assert.Equal(t, ErrorKind(0), KindOf(fmt.Errorf("boom")))
	assert.Equal(t, "internal", CodeOf(fmt.Errorf("boom")))
	assert.Equal(t, "not_found", KindNotFound.String())
}
