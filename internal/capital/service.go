// Package capital tracks pooled underwriting capital per risk tier: provider
// positions, available vs. committed capital, and claim payouts.
//
// Accounting model: TotalCapital is provider principal and always equals the
// sum of provider CapitalAmount rows; a claim payout debits AvailableCapital
// and accrues ReservedCapital while leaving principal untouched until
// providers withdraw.
package capital

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/metrics"
	"github.com/coverlane/coverlane/pkg/models"
)

// CapitalService defines the capital-pool operations.
type CapitalService interface {
	InitializePool(ctx context.Context, caller uuid.UUID, poolType models.PoolType, yieldRateBps uint64, tokenMint string) (*models.CapitalPool, error)
	GetPool(ctx context.Context, poolType models.PoolType) (*models.CapitalPool, error)
	GetProvider(ctx context.Context, owner uuid.UUID, poolType models.PoolType) (*models.CapitalProvider, error)
	ProvideCapital(ctx context.Context, owner uuid.UUID, poolType models.PoolType, amount uint64) error
	WithdrawCapital(ctx context.Context, owner uuid.UUID, poolType models.PoolType, amount uint64) error
	AccruedYield(ctx context.Context, owner uuid.UUID, poolType models.PoolType) (decimal.Decimal, error)
}

// Service implements CapitalService.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	ledger *ledger.Service
}

// NewService creates a new capital service.
func NewService(logger *zap.Logger, db *gorm.DB, ledgerSvc *ledger.Service) (*Service, error) {
	return &Service{logger: logger, db: db, ledger: ledgerSvc}, nil
}

func loadPool(tx *gorm.DB, poolType models.PoolType) (*models.CapitalPool, error) {
	var pool models.CapitalPool
	if err := tx.Where("pool_type = ?", poolType).First(&pool).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("capital pool %s not found", poolType)
		}
		return nil, fmt.Errorf("failed to find pool: %w", err)
	}
	return &pool, nil
}

func publishPoolGauges(pool *models.CapitalPool) {
	metrics.PoolTotalCapital.WithLabelValues(pool.PoolType.String()).Set(float64(pool.TotalCapital))
	metrics.PoolAvailableCapital.WithLabelValues(pool.PoolType.String()).Set(float64(pool.AvailableCapital))
}

// InitializePool creates a pool for a risk tier with zero capital and its own
// ledger token account. Only the state authority may call it.
func (s *Service) InitializePool(ctx context.Context, caller uuid.UUID, poolType models.PoolType, yieldRateBps uint64, tokenMint string) (*models.CapitalPool, error) {
	if !poolType.IsValid() {
		return nil, errors.New(errors.CodeInvalidPoolType, "unknown pool type %d", poolType)
	}
	if yieldRateBps > 10000 {
		return nil, errors.InvalidAmount("yield rate %d exceeds 10000 bps", yieldRateBps)
	}
	if tokenMint == "" {
		return nil, errors.InvalidAmount("token mint must not be empty")
	}

	var pool *models.CapitalPool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := registry.LoadState(tx)
		if err != nil {
			return err
		}
		if state.Authority != caller {
			return errors.Unauthorized("caller is not the protocol authority")
		}

		var count int64
		if err := tx.Model(&models.CapitalPool{}).Where("pool_type = ?", poolType).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check pool: %w", err)
		}
		if count > 0 {
			return errors.New(errors.CodeDuplicatePool, "pool for tier %s already exists", poolType)
		}

		now := time.Now()
		pool = &models.CapitalPool{
			ID:           uuid.New(),
			PoolType:     poolType,
			YieldRateBps: yieldRateBps,
			TokenMint:    tokenMint,
			TokenAccount: uuid.New(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(pool).Error; err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}

		account := &models.LedgerAccount{
			ID:        uuid.New(),
			Owner:     pool.TokenAccount,
			Token:     tokenMint,
			CreatedAt: now,
		}
		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("failed to create pool token account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishPoolGauges(pool)
	s.logger.Info("capital pool initialized",
		zap.String("tier", poolType.String()),
		zap.Uint64("yield_rate_bps", yieldRateBps),
		zap.String("token", tokenMint))
	return pool, nil
}

// GetPool fetches a pool by tier.
func (s *Service) GetPool(ctx context.Context, poolType models.PoolType) (*models.CapitalPool, error) {
	return loadPool(s.db.WithContext(ctx), poolType)
}

// GetProvider fetches a provider position.
func (s *Service) GetProvider(ctx context.Context, owner uuid.UUID, poolType models.PoolType) (*models.CapitalProvider, error) {
	pool, err := loadPool(s.db.WithContext(ctx), poolType)
	if err != nil {
		return nil, err
	}
	var provider models.CapitalProvider
	if err := s.db.WithContext(ctx).Where("owner = ? AND pool_id = ?", owner, pool.ID).First(&provider).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("no capital position for %s in pool %s", owner, poolType)
		}
		return nil, fmt.Errorf("failed to find provider: %w", err)
	}
	return &provider, nil
}

// ProvideCapital moves amount from the owner's token account into the pool
// and grows the owner's position. A position is created on first deposit.
func (s *Service) ProvideCapital(ctx context.Context, owner uuid.UUID, poolType models.PoolType, amount uint64) error {
	if amount == 0 {
		return errors.InvalidAmount("capital amount must be positive")
	}

	var pool *models.CapitalPool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pool, err = loadPool(tx, poolType)
		if err != nil {
			return err
		}

		if err := s.ledger.TransferTx(tx, owner, pool.TokenAccount, pool.TokenMint, amount, pool.ID.String(), "provide capital"); err != nil {
			return err
		}

		now := time.Now()
		var provider models.CapitalProvider
		if err := tx.Where("owner = ? AND pool_id = ?", owner, pool.ID).First(&provider).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("failed to find provider: %w", err)
			}
			provider = models.CapitalProvider{
				ID:          uuid.New(),
				Owner:       owner,
				PoolID:      pool.ID,
				DepositTime: now.Unix(),
				CreatedAt:   now,
			}
			if err := tx.Create(&provider).Error; err != nil {
				return fmt.Errorf("failed to create provider: %w", err)
			}
		}

		capitalAmount, err := ledger.AddChecked(provider.CapitalAmount, amount)
		if err != nil {
			return err
		}
		provider.CapitalAmount = capitalAmount
		provider.DepositTime = now.Unix()
		provider.UpdatedAt = now
		if err := tx.Save(&provider).Error; err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}

		total, err := ledger.AddChecked(pool.TotalCapital, amount)
		if err != nil {
			return err
		}
		available, err := ledger.AddChecked(pool.AvailableCapital, amount)
		if err != nil {
			return err
		}
		pool.TotalCapital = total
		pool.AvailableCapital = available
		pool.UpdatedAt = now
		if err := tx.Save(pool).Error; err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publishPoolGauges(pool)
	s.logger.Info("capital provided",
		zap.String("owner", owner.String()),
		zap.String("tier", poolType.String()),
		zap.Uint64("amount", amount))
	return nil
}

// yieldFor computes the accrued yield on a position: an annual YieldRateBps on
// principal, accrued daily, for at least one day.
func yieldFor(provider *models.CapitalProvider, pool *models.CapitalPool, now int64) decimal.Decimal {
	daysHeld := (now - provider.DepositTime) / 86400
	if daysHeld < 1 {
		daysHeld = 1
	}
	principal := decimal.NewFromUint64(provider.CapitalAmount)
	rate := decimal.NewFromUint64(pool.YieldRateBps).Div(decimal.NewFromInt(10000))
	return principal.Mul(rate).Div(decimal.NewFromInt(365)).Mul(decimal.NewFromInt(daysHeld)).Truncate(0)
}

// AccruedYield quotes the yield a provider would be credited on withdrawal.
func (s *Service) AccruedYield(ctx context.Context, owner uuid.UUID, poolType models.PoolType) (decimal.Decimal, error) {
	pool, err := loadPool(s.db.WithContext(ctx), poolType)
	if err != nil {
		return decimal.Zero, err
	}
	provider, err := s.GetProvider(ctx, owner, poolType)
	if err != nil {
		return decimal.Zero, err
	}
	return yieldFor(provider, pool, time.Now().Unix()), nil
}

// WithdrawCapital accrues yield, shrinks the owner's position and the pool
// totals, and returns amount to the owner's token account. The position is
// removed when it reaches zero.
func (s *Service) WithdrawCapital(ctx context.Context, owner uuid.UUID, poolType models.PoolType, amount uint64) error {
	if amount == 0 {
		return errors.InvalidAmount("withdraw amount must be positive")
	}

	var pool *models.CapitalPool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pool, err = loadPool(tx, poolType)
		if err != nil {
			return err
		}

		var provider models.CapitalProvider
		if err := tx.Where("owner = ? AND pool_id = ?", owner, pool.ID).First(&provider).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("no capital position for %s in pool %s", owner, poolType)
			}
			return fmt.Errorf("failed to find provider: %w", err)
		}

		if amount > provider.CapitalAmount {
			return errors.InsufficientFunds("position %d is less than withdraw amount %d", provider.CapitalAmount, amount)
		}
		if amount > pool.AvailableCapital {
			return errors.InsufficientFunds("pool available capital %d is less than withdraw amount %d", pool.AvailableCapital, amount)
		}

		now := time.Now()
		rewards := yieldFor(&provider, pool, now.Unix())
		if rewards.Sign() > 0 {
			earned, err := ledger.AddChecked(provider.RewardsEarned, uint64(rewards.IntPart()))
			if err != nil {
				return err
			}
			provider.RewardsEarned = earned
		}

		remaining, err := ledger.SubChecked(provider.CapitalAmount, amount)
		if err != nil {
			return err
		}
		total, err := ledger.SubChecked(pool.TotalCapital, amount)
		if err != nil {
			return err
		}
		available, err := ledger.SubChecked(pool.AvailableCapital, amount)
		if err != nil {
			return err
		}

		if err := s.ledger.TransferTx(tx, pool.TokenAccount, owner, pool.TokenMint, amount, pool.ID.String(), "withdraw capital"); err != nil {
			return err
		}

		if remaining == 0 {
			if err := tx.Delete(&provider).Error; err != nil {
				return fmt.Errorf("failed to delete provider: %w", err)
			}
		} else {
			provider.CapitalAmount = remaining
			provider.UpdatedAt = now
			if err := tx.Save(&provider).Error; err != nil {
				return fmt.Errorf("failed to save provider: %w", err)
			}
		}

		pool.TotalCapital = total
		pool.AvailableCapital = available
		pool.UpdatedAt = now
		if err := tx.Save(pool).Error; err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publishPoolGauges(pool)
	s.logger.Info("capital withdrawn",
		zap.String("owner", owner.String()),
		zap.String("tier", poolType.String()),
		zap.Uint64("amount", amount))
	return nil
}

// PayoutClaim settles an approved claim from the pool inside the claim's own
// transaction: available capital shrinks, reserved capital records the payout,
// and the claimant's token account is credited. Provider principal is not
// touched.
func (s *Service) PayoutClaim(tx *gorm.DB, poolType models.PoolType, claimant uuid.UUID, amount uint64, reference string) error {
	pool, err := loadPool(tx, poolType)
	if err != nil {
		return err
	}

	if amount > pool.AvailableCapital {
		return errors.InsufficientPoolFunds("pool available capital %d cannot cover claim amount %d", pool.AvailableCapital, amount)
	}

	available, err := ledger.SubChecked(pool.AvailableCapital, amount)
	if err != nil {
		return err
	}
	reserved, err := ledger.AddChecked(pool.ReservedCapital, amount)
	if err != nil {
		return err
	}

	if err := s.ledger.TransferTx(tx, pool.TokenAccount, claimant, pool.TokenMint, amount, reference, "claim payout"); err != nil {
		return err
	}

	pool.AvailableCapital = available
	pool.ReservedCapital = reserved
	pool.UpdatedAt = time.Now()
	if err := tx.Save(pool).Error; err != nil {
		return fmt.Errorf("failed to save pool: %w", err)
	}

	publishPoolGauges(pool)
	return nil
}
