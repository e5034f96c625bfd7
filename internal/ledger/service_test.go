package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/database"
	"github.com/coverlane/coverlane/pkg/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewSQLiteDB()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	svc, err := NewService(zap.NewNop(), db)
	require.NoError(t, err)
	return svc, db
}

func TestDepositAndBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, svc.Deposit(ctx, owner, "USDC", 1000))
	require.NoError(t, svc.Deposit(ctx, owner, "USDC", 500))

	balance, err := svc.Balance(ctx, owner, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(1500), balance)

	// Tokens are independent sub-accounts.
	_, err = svc.Balance(ctx, owner, "SOL")
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Deposit(context.Background(), uuid.New(), "USDC", 0)
	require.True(t, errors.Is(err, errors.CodeInvalidAmount))
}

func TestOpenAccountIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := svc.OpenAccount(ctx, owner, "USDC")
	require.NoError(t, err)
	second, err := svc.OpenAccount(ctx, owner, "USDC")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestTransfer(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	from, to := uuid.New(), uuid.New()

	require.NoError(t, svc.Deposit(ctx, from, "USDC", 1000))
	require.NoError(t, svc.Transfer(ctx, from, to, "USDC", 300, "ref-1", "test transfer"))

	fromBalance, err := svc.Balance(ctx, from, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(700), fromBalance)

	// Destination account is created on first credit.
	toBalance, err := svc.Balance(ctx, to, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(300), toBalance)

	var journal []models.LedgerTransfer
	require.NoError(t, db.Find(&journal).Error)
	require.Len(t, journal, 1)
	require.Equal(t, from, journal[0].FromOwner)
	require.Equal(t, to, journal[0].ToOwner)
	require.Equal(t, uint64(300), journal[0].Amount)
	require.Equal(t, "ref-1", journal[0].Reference)
}

func TestTransferInsufficientFunds(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	from, to := uuid.New(), uuid.New()

	require.NoError(t, svc.Deposit(ctx, from, "USDC", 100))

	err := svc.Transfer(ctx, from, to, "USDC", 101, "ref-2", "over balance")
	require.True(t, errors.Is(err, errors.CodeInsufficientFunds))

	// The failed transfer left no trace.
	balance, err := svc.Balance(ctx, from, "USDC")
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)

	var count int64
	require.NoError(t, db.Model(&models.LedgerTransfer{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTransferMissingSource(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Transfer(context.Background(), uuid.New(), uuid.New(), "USDC", 10, "ref-3", "no source")
	require.True(t, errors.Is(err, errors.CodeNotFound))
}
