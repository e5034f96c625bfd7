package capital

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/database"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/models"
)

type capitalFixture struct {
	db        *gorm.DB
	ledger    *ledger.Service
	capital   *Service
	authority uuid.UUID
}

func newCapitalFixture(t *testing.T) *capitalFixture {
	t.Helper()
	db, err := database.NewSQLiteDB()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	ledgerSvc, err := ledger.NewService(log, db)
	require.NoError(t, err)
	capitalSvc, err := NewService(log, db, ledgerSvc)
	require.NoError(t, err)
	registrySvc, err := registry.NewService(log, db)
	require.NoError(t, err)

	authority := uuid.New()
	_, err = registrySvc.Bootstrap(context.Background(), authority, 500)
	require.NoError(t, err)

	return &capitalFixture{db: db, ledger: ledgerSvc, capital: capitalSvc, authority: authority}
}

func (f *capitalFixture) seedPool(t *testing.T, tier models.PoolType, yieldRateBps uint64) *models.CapitalPool {
	t.Helper()
	pool, err := f.capital.InitializePool(context.Background(), f.authority, tier, yieldRateBps, "USDC")
	require.NoError(t, err)
	return pool
}

func TestInitializePool(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()

	pool := f.seedPool(t, models.PoolLowRisk, 300)
	require.Equal(t, models.PoolLowRisk, pool.PoolType)
	require.Equal(t, uint64(300), pool.YieldRateBps)
	require.Zero(t, pool.TotalCapital)

	// The pool's token account exists on the ledger from the start.
	balance, err := f.ledger.Balance(ctx, pool.TokenAccount, "USDC")
	require.NoError(t, err)
	require.Zero(t, balance)

	// One pool per tier.
	_, err = f.capital.InitializePool(ctx, f.authority, models.PoolLowRisk, 300, "USDC")
	require.True(t, errors.Is(err, errors.CodeDuplicatePool))

	// Only the state authority may create pools.
	_, err = f.capital.InitializePool(ctx, uuid.New(), models.PoolMediumRisk, 300, "USDC")
	require.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = f.capital.InitializePool(ctx, f.authority, models.PoolType(9), 300, "USDC")
	require.True(t, errors.Is(err, errors.CodeInvalidPoolType))
}

func TestProvideAndWithdrawCapital(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()
	f.seedPool(t, models.PoolMediumRisk, 0)

	alice, bob := uuid.New(), uuid.New()
	require.NoError(t, f.ledger.Deposit(ctx, alice, "USDC", 1000))
	require.NoError(t, f.ledger.Deposit(ctx, bob, "USDC", 500))

	require.NoError(t, f.capital.ProvideCapital(ctx, alice, models.PoolMediumRisk, 600))
	require.NoError(t, f.capital.ProvideCapital(ctx, bob, models.PoolMediumRisk, 400))
	require.NoError(t, f.capital.ProvideCapital(ctx, alice, models.PoolMediumRisk, 100))

	pool, err := f.capital.GetPool(ctx, models.PoolMediumRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(1100), pool.TotalCapital)
	require.Equal(t, uint64(1100), pool.AvailableCapital)
	requirePoolConservation(t, f, models.PoolMediumRisk)

	require.NoError(t, f.capital.WithdrawCapital(ctx, alice, models.PoolMediumRisk, 300))
	pool, err = f.capital.GetPool(ctx, models.PoolMediumRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(800), pool.TotalCapital)
	require.Equal(t, uint64(800), pool.AvailableCapital)
	requirePoolConservation(t, f, models.PoolMediumRisk)

	// Withdrawn funds are back on the provider's ledger account.
	balance, err := f.ledger.Balance(ctx, alice, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(600), balance)

	// A position drained to zero is removed.
	require.NoError(t, f.capital.WithdrawCapital(ctx, bob, models.PoolMediumRisk, 400))
	_, err = f.capital.GetProvider(ctx, bob, models.PoolMediumRisk)
	require.True(t, errors.Is(err, errors.CodeNotFound))
	requirePoolConservation(t, f, models.PoolMediumRisk)
}

func requirePoolConservation(t *testing.T, f *capitalFixture, tier models.PoolType) {
	t.Helper()
	pool, err := f.capital.GetPool(context.Background(), tier)
	require.NoError(t, err)

	var providers []models.CapitalProvider
	require.NoError(t, f.db.Where("pool_id = ?", pool.ID).Find(&providers).Error)
	var sum uint64
	for _, p := range providers {
		sum += p.CapitalAmount
	}
	require.Equal(t, pool.TotalCapital, sum, "total capital must equal the sum of provider positions")
	require.LessOrEqual(t, pool.AvailableCapital, pool.TotalCapital)
}

func TestProvideCapitalRequiresFunds(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()
	f.seedPool(t, models.PoolLowRisk, 0)

	poor := uuid.New()
	require.NoError(t, f.ledger.Deposit(ctx, poor, "USDC", 50))

	err := f.capital.ProvideCapital(ctx, poor, models.PoolLowRisk, 100)
	require.True(t, errors.Is(err, errors.CodeInsufficientFunds))

	// Nothing moved.
	balance, err := f.ledger.Balance(ctx, poor, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(50), balance)
	pool, err := f.capital.GetPool(ctx, models.PoolLowRisk)
	require.NoError(t, err)
	require.Zero(t, pool.TotalCapital)
}

func TestWithdrawCapitalOverPosition(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()
	f.seedPool(t, models.PoolHighRisk, 0)

	owner := uuid.New()
	require.NoError(t, f.ledger.Deposit(ctx, owner, "USDC", 1000))
	require.NoError(t, f.capital.ProvideCapital(ctx, owner, models.PoolHighRisk, 1000))

	err := f.capital.WithdrawCapital(ctx, owner, models.PoolHighRisk, 1001)
	require.True(t, errors.Is(err, errors.CodeInsufficientFunds))

	// All balances are untouched by the failed withdrawal.
	pool, err := f.capital.GetPool(ctx, models.PoolHighRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), pool.TotalCapital)
	require.Equal(t, uint64(1000), pool.AvailableCapital)
	provider, err := f.capital.GetProvider(ctx, owner, models.PoolHighRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), provider.CapitalAmount)
	balance, err := f.ledger.Balance(ctx, owner, "USDC")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestYieldAccrual(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()
	f.seedPool(t, models.PoolLowRisk, 500)

	owner := uuid.New()
	require.NoError(t, f.ledger.Deposit(ctx, owner, "USDC", 1_000_000))
	require.NoError(t, f.capital.ProvideCapital(ctx, owner, models.PoolLowRisk, 1_000_000))

	// A fresh deposit accrues a minimum of one day:
	// 1_000_000 * 500 / 10000 / 365 = 136 truncated.
	yield, err := f.capital.AccruedYield(ctx, owner, models.PoolLowRisk)
	require.NoError(t, err)
	require.Equal(t, int64(136), yield.IntPart())

	require.NoError(t, f.capital.WithdrawCapital(ctx, owner, models.PoolLowRisk, 400_000))
	provider, err := f.capital.GetProvider(ctx, owner, models.PoolLowRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(600_000), provider.CapitalAmount)
	require.Equal(t, uint64(136), provider.RewardsEarned)
}

func TestPayoutClaimAccounting(t *testing.T) {
	f := newCapitalFixture(t)
	ctx := context.Background()
	f.seedPool(t, models.PoolMediumRisk, 0)

	provider := uuid.New()
	require.NoError(t, f.ledger.Deposit(ctx, provider, "USDC", 1000))
	require.NoError(t, f.capital.ProvideCapital(ctx, provider, models.PoolMediumRisk, 1000))

	claimant := uuid.New()
	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.capital.PayoutClaim(tx, models.PoolMediumRisk, claimant, 50, "claim-1")
	})
	require.NoError(t, err)

	// Payout spends available capital and records it as reserved;
	// provider principal stays whole until providers withdraw.
	pool, err := f.capital.GetPool(ctx, models.PoolMediumRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), pool.TotalCapital)
	require.Equal(t, uint64(950), pool.AvailableCapital)
	require.Equal(t, uint64(50), pool.ReservedCapital)

	balance, err := f.ledger.Balance(ctx, claimant, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(50), balance)

	// A payout larger than available capital fails and moves nothing.
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.capital.PayoutClaim(tx, models.PoolMediumRisk, claimant, 951, "claim-2")
	})
	require.True(t, errors.Is(err, errors.CodeInsufficientPoolFunds))
	pool, err = f.capital.GetPool(ctx, models.PoolMediumRisk)
	require.NoError(t, err)
	require.Equal(t, uint64(950), pool.AvailableCapital)
	require.Equal(t, uint64(50), pool.ReservedCapital)
}
