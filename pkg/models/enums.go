package models

// PoolType identifies the risk tier a capital pool underwrites.
type PoolType uint8

const (
	PoolLowRisk    PoolType = 1
	PoolMediumRisk PoolType = 2
	PoolHighRisk   PoolType = 3
)

func (p PoolType) String() string {
	switch p {
	case PoolLowRisk:
		return "low_risk"
	case PoolMediumRisk:
		return "medium_risk"
	case PoolHighRisk:
		return "high_risk"
	}
	return "unknown"
}

// IsValid reports whether p is one of the defined tiers.
func (p PoolType) IsValid() bool {
	switch p {
	case PoolLowRisk, PoolMediumRisk, PoolHighRisk:
		return true
	}
	return false
}

// ClaimStatus is the claim state machine: Pending transitions exactly once to
// Approved or Rejected, both terminal.
type ClaimStatus uint8

const (
	ClaimPending  ClaimStatus = 0
	ClaimApproved ClaimStatus = 1
	ClaimRejected ClaimStatus = 2
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimPending:
		return "pending"
	case ClaimApproved:
		return "approved"
	case ClaimRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether the status admits no further transition.
func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimApproved, ClaimRejected:
		return true
	case ClaimPending:
		return false
	}
	return false
}

// AnomalyType classifies an exploit alert.
type AnomalyType uint8

const (
	AnomalyTVLDrain           AnomalyType = 1
	AnomalyOracleDeviation    AnomalyType = 2
	AnomalyGovernanceTakeover AnomalyType = 3
	AnomalyOther              AnomalyType = 4
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyTVLDrain:
		return "tvl_drain"
	case AnomalyOracleDeviation:
		return "oracle_deviation"
	case AnomalyGovernanceTakeover:
		return "governance_takeover"
	case AnomalyOther:
		return "other"
	}
	return "unknown"
}

// IsValid reports whether a is one of the defined anomaly classes.
func (a AnomalyType) IsValid() bool {
	switch a {
	case AnomalyTVLDrain, AnomalyOracleDeviation, AnomalyGovernanceTakeover, AnomalyOther:
		return true
	}
	return false
}
