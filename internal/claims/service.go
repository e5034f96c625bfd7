// Package claims adjudicates claims against policies and settles approved
// payouts from the tier capital pool.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/capital"
	"github.com/coverlane/coverlane/internal/pricing"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/metrics"
	"github.com/coverlane/coverlane/pkg/models"
)

// ClaimsService defines the claim operations.
type ClaimsService interface {
	SubmitClaim(ctx context.Context, claimant, policyID uuid.UUID, amount uint64, evidence string) (*models.Claim, error)
	ResolveClaim(ctx context.Context, resolver, claimID uuid.UUID, approve bool, notes string) (*models.Claim, error)
	GetClaim(ctx context.Context, claimID uuid.UUID) (*models.Claim, error)
}

// Service implements ClaimsService.
type Service struct {
	logger  *zap.Logger
	db      *gorm.DB
	capital *capital.Service
}

// NewService creates a new claims service.
func NewService(logger *zap.Logger, db *gorm.DB, capitalSvc *capital.Service) (*Service, error) {
	return &Service{logger: logger, db: db, capital: capitalSvc}, nil
}

// SubmitClaim opens a pending claim for a live policy. Only the insured may
// claim, at most once per policy, for at most the coverage amount, strictly
// before expiry.
func (s *Service) SubmitClaim(ctx context.Context, claimant, policyID uuid.UUID, amount uint64, evidence string) (*models.Claim, error) {
	if amount == 0 {
		return nil, errors.InvalidAmount("claim amount must be positive")
	}

	var claim *models.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var policy models.Policy
		if err := tx.Where("id = ?", policyID).First(&policy).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("policy %s not found", policyID)
			}
			return fmt.Errorf("failed to find policy: %w", err)
		}

		if claimant != policy.Insured {
			return errors.Unauthorized("claimant is not the insured party")
		}
		if !policy.IsActive {
			return errors.New(errors.CodePolicyNotActive, "policy %s is not active", policyID)
		}
		now := time.Now().Unix()
		if now >= policy.EndTime {
			return errors.New(errors.CodePolicyExpired, "policy %s expired at %d", policyID, policy.EndTime)
		}
		if policy.IsClaimed {
			return errors.New(errors.CodePolicyAlreadyClaimed, "policy %s has already been claimed", policyID)
		}
		if amount > policy.CoverageAmount {
			return errors.New(errors.CodeAmountExceedsCoverage, "claim amount %d exceeds coverage %d", amount, policy.CoverageAmount)
		}

		var count int64
		if err := tx.Model(&models.Claim{}).Where("policy_id = ?", policyID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check claim: %w", err)
		}
		if count > 0 {
			return errors.New(errors.CodeDuplicateClaim, "policy %s already has a claim", policyID)
		}

		claim = &models.Claim{
			ID:            uuid.New(),
			PolicyID:      policyID,
			Claimant:      claimant,
			Amount:        amount,
			Evidence:      evidence,
			SubmittedTime: now,
			Status:        models.ClaimPending,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := tx.Create(claim).Error; err != nil {
			return fmt.Errorf("failed to create claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ClaimsSubmitted.Inc()
	s.logger.Info("claim submitted",
		zap.String("claim_id", claim.ID.String()),
		zap.String("policy_id", policyID.String()),
		zap.Uint64("amount", amount))
	return claim, nil
}

// ResolveClaim transitions a pending claim to Approved or Rejected, exactly
// once. Approval settles the payout from the tier pool and marks the policy
// claimed in the same transaction; an uncoverable claim fails with
// InsufficientPoolFunds and changes nothing, to be resubmitted once the pool
// is replenished. Rejection moves no funds.
func (s *Service) ResolveClaim(ctx context.Context, resolver, claimID uuid.UUID, approve bool, notes string) (*models.Claim, error) {
	var claim *models.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := registry.LoadState(tx)
		if err != nil {
			return err
		}

		var c models.Claim
		if err := tx.Where("id = ?", claimID).First(&c).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("claim %s not found", claimID)
			}
			return fmt.Errorf("failed to find claim: %w", err)
		}

		var policy models.Policy
		if err := tx.Where("id = ?", c.PolicyID).First(&policy).Error; err != nil {
			return fmt.Errorf("failed to find policy: %w", err)
		}

		var protocol models.ProtocolInfo
		if err := tx.Where("id = ?", policy.ProtocolID).First(&protocol).Error; err != nil {
			return fmt.Errorf("failed to find protocol: %w", err)
		}

		if resolver != protocol.Authority && resolver != state.Authority {
			return errors.Unauthorized("resolver lacks settlement authority for claim %s", claimID)
		}

		if c.Status.Terminal() {
			return errors.New(errors.CodeClaimAlreadyResolved, "claim %s is already %s", claimID, c.Status)
		}

		now := time.Now()
		if approve {
			tier := pricing.TierForScore(protocol.RiskScore)
			if err := s.capital.PayoutClaim(tx, tier, c.Claimant, c.Amount, c.ID.String()); err != nil {
				return err
			}

			policy.IsClaimed = true
			policy.UpdatedAt = now
			if err := tx.Save(&policy).Error; err != nil {
				return fmt.Errorf("failed to save policy: %w", err)
			}
			c.Status = models.ClaimApproved
		} else {
			c.Status = models.ClaimRejected
		}

		c.Resolver = resolver
		c.ResolutionNotes = notes
		c.ResolutionTime = now.Unix()
		c.UpdatedAt = now
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("failed to save claim: %w", err)
		}
		claim = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ClaimsResolved.WithLabelValues(claim.Status.String()).Inc()
	s.logger.Info("claim resolved",
		zap.String("claim_id", claimID.String()),
		zap.String("status", claim.Status.String()),
		zap.Uint64("amount", claim.Amount))
	return claim, nil
}

// GetClaim fetches a claim by id.
func (s *Service) GetClaim(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	var c models.Claim
	if err := s.db.WithContext(ctx).Where("id = ?", claimID).First(&c).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("claim %s not found", claimID)
		}
		return nil, fmt.Errorf("failed to find claim: %w", err)
	}
	return &c, nil
}
