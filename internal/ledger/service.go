// Package ledger implements the fungible-asset ledger the insurance core
// settles against: token-denominated accounts with atomic debit/credit
// transfer. A transfer debits one account and credits another in the same
// database transaction and fails cleanly when the source balance is short.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/pkg/models"
)

// LedgerService defines the asset-ledger operations.
type LedgerService interface {
	OpenAccount(ctx context.Context, owner uuid.UUID, token string) (*models.LedgerAccount, error)
	Balance(ctx context.Context, owner uuid.UUID, token string) (uint64, error)
	Deposit(ctx context.Context, owner uuid.UUID, token string, amount uint64) error
	Transfer(ctx context.Context, from, to uuid.UUID, token string, amount uint64, reference, description string) error
	TransferTx(tx *gorm.DB, from, to uuid.UUID, token string, amount uint64, reference, description string) error
}

// Service implements LedgerService on gorm.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new ledger service.
func NewService(logger *zap.Logger, db *gorm.DB) (*Service, error) {
	return &Service{logger: logger, db: db}, nil
}

// OpenAccount returns the account for (owner, token), creating it with a zero
// balance when it does not exist yet.
func (s *Service) OpenAccount(ctx context.Context, owner uuid.UUID, token string) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := s.db.WithContext(ctx).Where("owner = ? AND token = ?", owner, token).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	account = models.LedgerAccount{
		ID:        uuid.New(),
		Owner:     owner,
		Token:     token,
		Balance:   0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

// Balance returns the current balance of (owner, token).
func (s *Service) Balance(ctx context.Context, owner uuid.UUID, token string) (uint64, error) {
	var account models.LedgerAccount
	if err := s.db.WithContext(ctx).Where("owner = ? AND token = ?", owner, token).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, errors.NotFound("account %s/%s not found", owner, token)
		}
		return 0, fmt.Errorf("failed to find account: %w", err)
	}
	return account.Balance, nil
}

// Deposit credits an account from outside the ledger. This is the on-ramp the
// surrounding platform uses to seed treasuries and user balances.
func (s *Service) Deposit(ctx context.Context, owner uuid.UUID, token string, amount uint64) error {
	if amount == 0 {
		return errors.InvalidAmount("deposit amount must be positive")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.LedgerAccount
		if err := tx.Where("owner = ? AND token = ?", owner, token).First(&account).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("failed to find account: %w", err)
			}
			account = models.LedgerAccount{
				ID:        uuid.New(),
				Owner:     owner,
				Token:     token,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&account).Error; err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		}

		balance, err := AddChecked(account.Balance, amount)
		if err != nil {
			return err
		}
		account.Balance = balance
		account.UpdatedAt = time.Now()
		if err := tx.Save(&account).Error; err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		return nil
	})
}

// Transfer moves amount between two owners' accounts in its own transaction.
func (s *Service) Transfer(ctx context.Context, from, to uuid.UUID, token string, amount uint64, reference, description string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransferTx(tx, from, to, token, amount, reference, description)
	})
}

// TransferTx moves amount between two owners' accounts inside the caller's
// transaction, so a policy purchase or claim payout settles atomically with
// the state change that triggered it.
func (s *Service) TransferTx(tx *gorm.DB, from, to uuid.UUID, token string, amount uint64, reference, description string) error {
	if amount == 0 {
		return errors.InvalidAmount("transfer amount must be positive")
	}

	var fromAccount models.LedgerAccount
	if err := tx.Where("owner = ? AND token = ?", from, token).First(&fromAccount).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NotFound("source account %s/%s not found", from, token)
		}
		return fmt.Errorf("failed to find source account: %w", err)
	}

	if fromAccount.Balance < amount {
		return errors.InsufficientFunds("balance %d is less than transfer amount %d", fromAccount.Balance, amount)
	}

	var toAccount models.LedgerAccount
	if err := tx.Where("owner = ? AND token = ?", to, token).First(&toAccount).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			toAccount = models.LedgerAccount{
				ID:        uuid.New(),
				Owner:     to,
				Token:     token,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&toAccount).Error; err != nil {
				return fmt.Errorf("failed to create destination account: %w", err)
			}
		} else {
			return fmt.Errorf("failed to find destination account: %w", err)
		}
	}

	fromBalance, err := SubChecked(fromAccount.Balance, amount)
	if err != nil {
		return err
	}
	toBalance, err := AddChecked(toAccount.Balance, amount)
	if err != nil {
		return err
	}

	fromAccount.Balance = fromBalance
	fromAccount.UpdatedAt = time.Now()
	if err := tx.Save(&fromAccount).Error; err != nil {
		return fmt.Errorf("failed to save source account: %w", err)
	}

	toAccount.Balance = toBalance
	toAccount.UpdatedAt = time.Now()
	if err := tx.Save(&toAccount).Error; err != nil {
		return fmt.Errorf("failed to save destination account: %w", err)
	}

	journal := &models.LedgerTransfer{
		ID:          uuid.New(),
		FromOwner:   from,
		ToOwner:     to,
		Token:       token,
		Amount:      amount,
		Reference:   reference,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(journal).Error; err != nil {
		return fmt.Errorf("failed to create transfer record: %w", err)
	}

	return nil
}
