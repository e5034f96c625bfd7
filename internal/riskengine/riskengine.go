// Package riskengine computes composite risk scores for registered protocols.
//
// Each sub-category yields an independent score in [0,100] through monotonic
// transforms: more audits, a larger bug bounty, deeper liquidity and broader
// governance lower the score; higher complexity, concentration, admin count
// and an oracle dependency raise it. The composite is a fixed weighted average
// clamped to [0,100]; higher means riskier.
//
// 0-25 low, 26-50 medium-low, 51-75 medium-high, 76-100 high.
package riskengine

// Composite weights, in percent.
const (
	CodeRiskWeight        = 30
	EconomicRiskWeight    = 40
	OperationalRiskWeight = 30
)

// CodeRiskParams describe the audited surface of the protocol's code.
type CodeRiskParams struct {
	AuditCount      uint8  `json:"audit_count"`
	BugBountySize   uint64 `json:"bug_bounty_size"`
	ComplexityScore uint8  `json:"complexity_score" validate:"max=100"`
}

// EconomicRiskParams describe the protocol's market exposure.
type EconomicRiskParams struct {
	LiquidityDepth    uint64 `json:"liquidity_depth"`
	ConcentrationRisk uint8  `json:"concentration_risk" validate:"max=100"`
}

// OperationalRiskParams describe how the protocol is operated.
type OperationalRiskParams struct {
	GovernanceCount  uint8 `json:"governance_count"`
	AdminCount       uint8 `json:"admin_count"`
	OracleDependency bool  `json:"oracle_dependency"`
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

// AssessCodeRisk scores code risk from audit coverage, bug bounty size and
// complexity. Each audit removes 20 points up to 5 audits.
func AssessCodeRisk(p CodeRiskParams) uint8 {
	auditFactor := 100 - uint16(minU8(p.AuditCount, 5))*20

	var bountyFactor uint16
	switch {
	case p.BugBountySize == 0:
		bountyFactor = 100
	case p.BugBountySize <= 50_000:
		bountyFactor = 75
	case p.BugBountySize <= 250_000:
		bountyFactor = 50
	case p.BugBountySize <= 1_000_000:
		bountyFactor = 25
	default:
		bountyFactor = 0
	}

	complexityFactor := uint16(minU8(p.ComplexityScore, 100))

	return uint8((auditFactor + bountyFactor + complexityFactor) / 3)
}

// AssessEconomicRisk scores economic risk from the protocol's stored TVL, its
// liquidity depth and holder concentration. Larger TVL means a larger honeypot.
func AssessEconomicRisk(tvlUSD uint64, p EconomicRiskParams) uint8 {
	var tvlFactor uint16
	switch {
	case tvlUSD <= 1_000_000:
		tvlFactor = 25
	case tvlUSD <= 10_000_000:
		tvlFactor = 50
	case tvlUSD <= 100_000_000:
		tvlFactor = 75
	default:
		tvlFactor = 100
	}

	var liquidityFactor uint16
	switch {
	case p.LiquidityDepth <= 100_000:
		liquidityFactor = 100
	case p.LiquidityDepth <= 1_000_000:
		liquidityFactor = 75
	case p.LiquidityDepth <= 10_000_000:
		liquidityFactor = 50
	default:
		liquidityFactor = 25
	}

	concentrationFactor := uint16(minU8(p.ConcentrationRisk, 100))

	return uint8((tvlFactor + liquidityFactor + concentrationFactor) / 3)
}

// AssessOperationalRisk scores operational risk. Each governance participant
// removes 10 points up to 10; each privileged admin key adds 20 up to 5; an
// oracle dependency contributes a full 100 to its third.
func AssessOperationalRisk(p OperationalRiskParams) uint8 {
	governanceFactor := 100 - uint16(minU8(p.GovernanceCount, 10))*10
	adminFactor := uint16(minU8(p.AdminCount, 5)) * 20

	var oracleFactor uint16
	if p.OracleDependency {
		oracleFactor = 100
	}

	return uint8((governanceFactor + adminFactor + oracleFactor) / 3)
}

// CompositeScore combines the three sub-scores with the fixed weights.
func CompositeScore(codeRisk, economicRisk, operationalRisk uint8) uint8 {
	weighted := (uint16(codeRisk)*CodeRiskWeight +
		uint16(economicRisk)*EconomicRiskWeight +
		uint16(operationalRisk)*OperationalRiskWeight) / 100
	if weighted > 100 {
		weighted = 100
	}
	return uint8(weighted)
}

// Score runs the full assessment for a protocol.
func Score(tvlUSD uint64, code CodeRiskParams, econ EconomicRiskParams, oper OperationalRiskParams) uint8 {
	return CompositeScore(
		AssessCodeRisk(code),
		AssessEconomicRisk(tvlUSD, econ),
		AssessOperationalRisk(oper),
	)
}
