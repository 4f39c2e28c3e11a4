package entries

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicateEntry means a mutation for this request id was already
// recorded. The reconciliation sweep relies on it to make replays
// exactly-once.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

type Reason string

const (
	ReasonDepositApproved  Reason = "deposit_approved"
	ReasonWithdrawApproved Reason = "withdraw_approved"
	ReasonPurchase         Reason = "purchase"
)

// Entry is one append-only record per balance mutation. DeltaMinor is
// signed; RequestID links the entry to the request or purchase that
// caused it and is unique when present.
type Entry struct {
	AccountID  uint64
	DeltaMinor int64
	Reason     Reason
	RequestID  string
	CreatedAt  time.Time
}

// Drift is a disagreement between the materialized balance and the sum
// of the account's ledger entries. It can only come from out-of-band
// writes and is surfaced for operators, never auto-corrected.
type Drift struct {
	AccountID     uint64
	BalanceMinor  int64
	EntrySumMinor int64
}

type Entries interface {
	Insert(tx *sql.Tx, e Entry) error
	BalanceFromEntries(ctx context.Context, accountID uint64) (int64, error)
	ListByAccount(ctx context.Context, accountID uint64, limit int) ([]Entry, error)
	ListDrifted(ctx context.Context, limit int) ([]Drift, error)
}
