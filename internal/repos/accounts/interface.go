package accounts

import (
	"context"
	"database/sql"
	"errors"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Accounts is the balance store. Balances are int64 minor units (poisha)
// and an account that was never written reads as balance 0; rows appear
// the first time an account is touched through Ensure.
type Accounts interface {
	Ensure(tx *sql.Tx, accountID uint64, name string) error
	GetBalance(ctx context.Context, accountID uint64) (int64, error)
	LockAndGetBalance(tx *sql.Tx, accountID uint64) (int64, error)
	Credit(tx *sql.Tx, accountID uint64, amountMinor int64) error
	DebitIfSufficient(tx *sql.Tx, accountID uint64, amountMinor int64) error
	Count(ctx context.Context) (int64, error)
}
