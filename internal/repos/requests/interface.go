package requests

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("request not found")
	ErrAlreadyDecided = errors.New("request already decided")
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReasonInsufficientBalance tags a withdraw request whose approval was
// corrected to a rejection because the balance no longer covered it.
const ReasonInsufficientBalance = "insufficient_balance"

// Request is a deposit or withdraw intent awaiting a binary admin
// decision. Rows are never deleted; they are the audit trail of every
// decision ever made.
type Request struct {
	ID            string
	AccountID     uint64
	AccountName   string
	Kind          Kind
	Method        string
	AmountMinor   int64
	FeeMinor      int64 // withdraw only
	PayoutMinor   int64 // withdraw only
	Sender        string // deposit: reference the user paid from
	Address       string // withdraw: payout destination
	TxRef         string // deposit: external transaction id / hash
	ScreenshotRef string // deposit: proof-of-payment file reference
	Status        Status
	Reason        string
	CreatedAt     time.Time
	DecidedAt     *time.Time
	AdminNotified bool
	UserNotified  bool
}

// Requests is the request store. ClaimDecision is the only way out of
// pending and succeeds at most once per request; the notified flags and
// the List* scans exist so delivery can be retried after a crash without
// ever being duplicated.
type Requests interface {
	Create(tx *sql.Tx, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	ClaimDecision(tx *sql.Tx, id string, kind Kind, decision Decision) (*Request, error)
	MarkRejectedInsufficientFunds(tx *sql.Tx, id string) error
	MarkAdminNotified(ctx context.Context, id string) error
	MarkUserNotified(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, accountID uint64, kind Kind, limit int) ([]Request, error)
	ListUnappliedApproved(ctx context.Context, limit int) ([]Request, error)
	ListAdminUnnotified(ctx context.Context, limit int) ([]Request, error)
	ListUserUnnotified(ctx context.Context, limit int) ([]Request, error)
}
