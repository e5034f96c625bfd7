package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/pkg/models"
)

func TestTierForScore(t *testing.T) {
	assert.Equal(t, models.PoolLowRisk, TierForScore(0))
	assert.Equal(t, models.PoolLowRisk, TierForScore(25))
	assert.Equal(t, models.PoolMediumRisk, TierForScore(26))
	assert.Equal(t, models.PoolMediumRisk, TierForScore(75))
	assert.Equal(t, models.PoolHighRisk, TierForScore(76))
	assert.Equal(t, models.PoolHighRisk, TierForScore(100))
}

func TestPremiumRateBps(t *testing.T) {
	assert.Equal(t, uint64(25), PremiumRateBps(0))
	assert.Equal(t, uint64(25), PremiumRateBps(25))
	assert.Equal(t, uint64(50), PremiumRateBps(26))
	assert.Equal(t, uint64(50), PremiumRateBps(50))
	assert.Equal(t, uint64(100), PremiumRateBps(51))
	assert.Equal(t, uint64(100), PremiumRateBps(75))
	assert.Equal(t, uint64(200), PremiumRateBps(76))
	assert.Equal(t, uint64(200), PremiumRateBps(100))
}

func TestQuotePremium(t *testing.T) {
	// 100_000_000 * 25 / 10000 / 365 * 30, truncating left to right:
	// 250_000 / 365 = 684, 684 * 30 = 20_520.
	premium, err := QuotePremium(10, 100_000_000, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_520), premium)

	// Same inputs always yield the same quote.
	again, err := QuotePremium(10, 100_000_000, 30)
	require.NoError(t, err)
	assert.Equal(t, premium, again)

	// Medium tier, one year: 365_000 * 50 / 10000 / 365 * 365 = 1825.
	premium, err = QuotePremium(50, 365_000, 365)
	require.NoError(t, err)
	assert.Equal(t, uint64(1825), premium)

	// Tiny coverage truncates to a zero premium rather than failing.
	premium, err = QuotePremium(50, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), premium)
}

func TestQuotePremiumRejectsInvalidInput(t *testing.T) {
	_, err := QuotePremium(10, 100_000_000, 0)
	assert.True(t, errors.Is(err, errors.CodeInvalidDuration))

	_, err = QuotePremium(10, 0, 30)
	assert.True(t, errors.Is(err, errors.CodeInvalidAmount))
}

func TestQuotePremiumOverflow(t *testing.T) {
	_, err := QuotePremium(100, math.MaxUint64, 30)
	assert.True(t, errors.Is(err, errors.CodeArithmeticOverflow))
}
