// Package pricing derives premiums from risk scores. Every function is pure
// integer arithmetic with truncation toward zero, so an off-system quote and
// the on-system enforcement produce the same value bit for bit.
package pricing

import (
	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/pkg/models"
)

// TierForScore maps a composite risk score to the pool tier that underwrites
// it. Scores in the two middle premium bands share the medium pool.
func TierForScore(riskScore uint8) models.PoolType {
	switch {
	case riskScore <= 25:
		return models.PoolLowRisk
	case riskScore <= 75:
		return models.PoolMediumRisk
	default:
		return models.PoolHighRisk
	}
}

// PremiumRateBps returns the annual premium rate in basis points for a
// composite risk score.
func PremiumRateBps(riskScore uint8) uint64 {
	switch {
	case riskScore <= 25:
		return 25
	case riskScore <= 50:
		return 50
	case riskScore <= 75:
		return 100
	default:
		return 200
	}
}

// QuotePremium computes the premium for covering coverageAmount at the given
// risk score over durationDays:
//
//	premium = coverageAmount * rateBps / 10000 / 365 * durationDays
//
// evaluated left to right with truncating division.
func QuotePremium(riskScore uint8, coverageAmount uint64, durationDays uint16) (uint64, error) {
	if durationDays == 0 {
		return 0, errors.InvalidDuration("duration must be at least one day")
	}
	if coverageAmount == 0 {
		return 0, errors.InvalidAmount("coverage amount must be positive")
	}

	rateBps := PremiumRateBps(riskScore)

	scaled, err := ledger.MulChecked(coverageAmount, rateBps)
	if err != nil {
		return 0, err
	}
	annual := scaled / 10000
	daily := annual / 365
	premium, err := ledger.MulChecked(daily, uint64(durationDays))
	if err != nil {
		return 0, err
	}
	return premium, nil
}
