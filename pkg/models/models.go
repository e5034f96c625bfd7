// Package models defines the persisted entities of the insurance protocol.
// All monetary fields are non-negative integers in the smallest denomination
// of their token; services reject any arithmetic that would wrap.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolState is the singleton configuration row, created once at bootstrap
// and mutated only through operations gated on its authority.
type ProtocolState struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Authority      uuid.UUID `json:"authority" gorm:"type:uuid;index" validate:"required,uuid"`
	ProtocolFeeBps uint64    `json:"protocol_fee_bps" validate:"max=10000"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProtocolRegistry is the singleton registration counter.
type ProtocolRegistry struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	ProtocolCount uint64    `json:"protocol_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProtocolInfo is one registered protocol. A single protocol per authority;
// AlertSeq is the monotonic per-protocol counter keying exploit alerts.
type ProtocolInfo struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Authority uuid.UUID `json:"authority" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`
	Name      string    `json:"name" validate:"required,min=1,max=64"`
	TVLUSD    uint64    `json:"tvl_usd" gorm:"column:tvl_usd"`
	RiskScore uint8     `json:"risk_score" validate:"max=100"`
	IsActive  bool      `json:"is_active"`
	AlertSeq  uint64    `json:"alert_seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CapitalPool holds pooled underwriting capital for one risk tier.
// Invariants: AvailableCapital <= TotalCapital and TotalCapital equals the sum
// of all provider CapitalAmount rows referencing the pool. ReservedCapital is
// the cumulative amount paid out to approved claims.
type CapitalPool struct {
	ID               uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	PoolType         PoolType  `json:"pool_type" gorm:"uniqueIndex" validate:"required"`
	YieldRateBps     uint64    `json:"yield_rate_bps" validate:"max=10000"`
	TokenMint        string    `json:"token_mint" validate:"required,max=16"`
	TokenAccount     uuid.UUID `json:"token_account" gorm:"type:uuid" validate:"required,uuid"`
	TotalCapital     uint64    `json:"total_capital"`
	AvailableCapital uint64    `json:"available_capital"`
	ReservedCapital  uint64    `json:"reserved_capital"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CapitalProvider is one underwriter's position in one pool.
type CapitalProvider struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Owner         uuid.UUID `json:"owner" gorm:"type:uuid;uniqueIndex:idx_provider_owner_pool" validate:"required,uuid"`
	PoolID        uuid.UUID `json:"pool_id" gorm:"type:uuid;uniqueIndex:idx_provider_owner_pool" validate:"required,uuid"`
	CapitalAmount uint64    `json:"capital_amount"`
	RewardsEarned uint64    `json:"rewards_earned"`
	DepositTime   int64     `json:"deposit_time"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Policy binds an insured party to a protocol's coverage for a premium over a
// fixed duration. One policy per (insured, protocol) pair.
type Policy struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Insured        uuid.UUID `json:"insured" gorm:"type:uuid;uniqueIndex:idx_policy_insured_protocol" validate:"required,uuid"`
	ProtocolID     uuid.UUID `json:"protocol_id" gorm:"type:uuid;uniqueIndex:idx_policy_insured_protocol" validate:"required,uuid"`
	CoverageAmount uint64    `json:"coverage_amount" validate:"gt=0"`
	PremiumAmount  uint64    `json:"premium_amount"`
	StartTime      int64     `json:"start_time"`
	EndTime        int64     `json:"end_time"`
	IsActive       bool      `json:"is_active"`
	IsClaimed      bool      `json:"is_claimed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Claim is the single claim record a policy may ever hold. Status transitions
// once from Pending to Approved or Rejected and is terminal thereafter.
type Claim struct {
	ID              uuid.UUID   `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	PolicyID        uuid.UUID   `json:"policy_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`
	Claimant        uuid.UUID   `json:"claimant" gorm:"type:uuid;index" validate:"required,uuid"`
	Amount          uint64      `json:"amount" validate:"gt=0"`
	Evidence        string      `json:"evidence" validate:"max=512"`
	SubmittedTime   int64       `json:"submitted_time"`
	Status          ClaimStatus `json:"status"`
	ResolutionTime  int64       `json:"resolution_time"`
	Resolver        uuid.UUID   `json:"resolver" gorm:"type:uuid"`
	ResolutionNotes string      `json:"resolution_notes" validate:"max=512"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ExploitAlert is an append-only anomaly record. Immutable after creation
// except for the confirmation flag and notes set by ConfirmAlert.
type ExploitAlert struct {
	ID              uuid.UUID   `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	ProtocolID      uuid.UUID   `json:"protocol_id" gorm:"type:uuid;uniqueIndex:idx_alert_protocol_seq" validate:"required,uuid"`
	Seq             uint64      `json:"seq" gorm:"uniqueIndex:idx_alert_protocol_seq"`
	AnomalyType     AnomalyType `json:"anomaly_type" validate:"required"`
	Severity        uint8       `json:"severity" validate:"max=100"`
	Details         string      `json:"details" validate:"max=512"`
	IsConfirmed     bool        `json:"is_confirmed"`
	ResolutionNotes string      `json:"resolution_notes" validate:"max=512"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// LedgerAccount is a token-denominated balance owned by a party (a user, a
// pool's token account, or the protocol treasury). One account per (owner, token).
type LedgerAccount struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Owner     uuid.UUID `json:"owner" gorm:"type:uuid;uniqueIndex:idx_ledger_owner_token" validate:"required,uuid"`
	Token     string    `json:"token" gorm:"uniqueIndex:idx_ledger_owner_token" validate:"required,max=16"`
	Balance   uint64    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerTransfer is the journal row written for every completed transfer.
type LedgerTransfer struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	FromOwner   uuid.UUID `json:"from_owner" gorm:"type:uuid;index" validate:"required,uuid"`
	ToOwner     uuid.UUID `json:"to_owner" gorm:"type:uuid;index" validate:"required,uuid"`
	Token       string    `json:"token" validate:"required,max=16"`
	Amount      uint64    `json:"amount" validate:"gt=0"`
	Reference   string    `json:"reference" validate:"omitempty,max=255"`
	Description string    `json:"description" validate:"omitempty,max=500"`
	CreatedAt   time.Time `json:"created_at"`
}
