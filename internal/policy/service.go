// Package policy issues and tracks insurance policies binding an insured
// party to a protocol's coverage.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/internal/pricing"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/metrics"
	"github.com/coverlane/coverlane/pkg/models"
)

// PolicyService defines the policy lifecycle operations.
type PolicyService interface {
	CreatePolicy(ctx context.Context, insured, protocolID uuid.UUID, coverageAmount, premiumAmount uint64, durationDays uint16) (*models.Policy, error)
	GetPolicy(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	FindPolicy(ctx context.Context, insured, protocolID uuid.UUID) (*models.Policy, error)
}

// Service implements PolicyService.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	ledger *ledger.Service
}

// NewService creates a new policy service.
func NewService(logger *zap.Logger, db *gorm.DB, ledgerSvc *ledger.Service) (*Service, error) {
	return &Service{logger: logger, db: db, ledger: ledgerSvc}, nil
}

// CreatePolicy issues a policy for an active protocol. The caller-supplied
// premium must equal the quoted premium exactly; the premium settles to the
// protocol treasury in the tier pool's mint within the same transaction.
func (s *Service) CreatePolicy(ctx context.Context, insured, protocolID uuid.UUID, coverageAmount, premiumAmount uint64, durationDays uint16) (*models.Policy, error) {
	if durationDays == 0 {
		return nil, errors.InvalidDuration("duration must be at least one day")
	}

	var created *models.Policy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := registry.LoadState(tx)
		if err != nil {
			return err
		}

		var protocol models.ProtocolInfo
		if err := tx.Where("id = ?", protocolID).First(&protocol).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("protocol %s not found", protocolID)
			}
			return fmt.Errorf("failed to find protocol: %w", err)
		}
		if !protocol.IsActive {
			return errors.New(errors.CodeProtocolInactive, "protocol %s is not active", protocolID)
		}

		quote, err := pricing.QuotePremium(protocol.RiskScore, coverageAmount, durationDays)
		if err != nil {
			return err
		}
		if premiumAmount != quote {
			return errors.New(errors.CodePremiumMismatch, "premium %d does not match quoted premium %d", premiumAmount, quote)
		}

		var count int64
		if err := tx.Model(&models.Policy{}).Where("insured = ? AND protocol_id = ?", insured, protocolID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check policy: %w", err)
		}
		if count > 0 {
			return errors.New(errors.CodeDuplicatePolicy, "policy for %s on protocol %s already exists", insured, protocolID)
		}

		var pool models.CapitalPool
		tier := pricing.TierForScore(protocol.RiskScore)
		if err := tx.Where("pool_type = ?", tier).First(&pool).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("no capital pool for tier %s", tier)
			}
			return fmt.Errorf("failed to find pool: %w", err)
		}

		if premiumAmount > 0 {
			if err := s.ledger.TransferTx(tx, insured, state.Authority, pool.TokenMint, premiumAmount, protocolID.String(), "policy premium"); err != nil {
				return err
			}
		}

		now := time.Now()
		created = &models.Policy{
			ID:             uuid.New(),
			Insured:        insured,
			ProtocolID:     protocolID,
			CoverageAmount: coverageAmount,
			PremiumAmount:  premiumAmount,
			StartTime:      now.Unix(),
			EndTime:        now.Unix() + int64(durationDays)*86400,
			IsActive:       true,
			IsClaimed:      false,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PoliciesCreated.Inc()
	s.logger.Info("policy created",
		zap.String("policy_id", created.ID.String()),
		zap.String("insured", insured.String()),
		zap.String("protocol_id", protocolID.String()),
		zap.Uint64("coverage", coverageAmount),
		zap.Uint64("premium", premiumAmount))
	return created, nil
}

// GetPolicy fetches a policy by id.
func (s *Service) GetPolicy(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	var p models.Policy
	if err := s.db.WithContext(ctx).Where("id = ?", policyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("policy %s not found", policyID)
		}
		return nil, fmt.Errorf("failed to find policy: %w", err)
	}
	return &p, nil
}

// FindPolicy fetches the policy for an (insured, protocol) pair.
func (s *Service) FindPolicy(ctx context.Context, insured, protocolID uuid.UUID) (*models.Policy, error) {
	var p models.Policy
	if err := s.db.WithContext(ctx).Where("insured = ? AND protocol_id = ?", insured, protocolID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("no policy for %s on protocol %s", insured, protocolID)
		}
		return nil, fmt.Errorf("failed to find policy: %w", err)
	}
	return &p, nil
}
