package ledger

import (
	"context"
	"errors"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrBelowMinimum  = errors.New("amount below withdraw minimum")
	ErrInvalidMethod = errors.New("invalid payment method")
)

// Payment methods the conversation layer may hand us. Crypto is accepted
// for deposits only.
const (
	MethodBkash   = "bkash"
	MethodNagad   = "nagad"
	MethodBinance = "binance"
	MethodCrypto  = "crypto"
)

func validDepositMethod(m string) bool {
	switch m {
	case MethodBkash, MethodNagad, MethodBinance, MethodCrypto:
		return true
	}

	return false
}

func validWithdrawMethod(m string) bool {
	switch m {
	case MethodBkash, MethodNagad, MethodBinance:
		return true
	}

	return false
}

// Notifier is the outbound port for outcome events. Implementations
// deliver to whatever transport talks to admins and users; the engine
// only knows topics and JSON payloads.
type Notifier interface {
	Publish(ctx context.Context, id string, topic string, payload []byte) error
}

const (
	TopicAdminAlerts = "admin_alerts"
	TopicUserEvents  = "user_events"
)

// --- Events. Each carries enough to render a message without a store
// round trip.

type DepositSubmitted struct {
	RequestID     string `json:"request_id"`
	AccountID     uint64 `json:"account_id"`
	AccountName   string `json:"account_name"`
	AmountMinor   int64  `json:"amount_minor"`
	Method        string `json:"method"`
	Sender        string `json:"sender"`
	TxRef         string `json:"tx_ref"`
	ScreenshotRef string `json:"screenshot_ref"`
}

type WithdrawSubmitted struct {
	RequestID   string `json:"request_id"`
	AccountID   uint64 `json:"account_id"`
	AccountName string `json:"account_name"`
	GrossMinor  int64  `json:"gross_minor"`
	FeeMinor    int64  `json:"fee_minor"`
	PayoutMinor int64  `json:"payout_minor"`
	Method      string `json:"method"`
	Address     string `json:"address"`
}

type DepositDecided struct {
	RequestID   string `json:"request_id"`
	AccountID   uint64 `json:"account_id"`
	AmountMinor int64  `json:"amount_minor"`
	Approved    bool   `json:"approved"`
}

type WithdrawDecided struct {
	RequestID   string `json:"request_id"`
	AccountID   uint64 `json:"account_id"`
	GrossMinor  int64  `json:"gross_minor"`
	FeeMinor    int64  `json:"fee_minor"`
	PayoutMinor int64  `json:"payout_minor"`
	Approved    bool   `json:"approved"`
	Reason      string `json:"reason,omitempty"`
}

type PurchaseResult struct {
	PurchaseID      string `json:"purchase_id"`
	AccountID       uint64 `json:"account_id"`
	ProductName     string `json:"product_name"`
	Delivered       bool   `json:"delivered"`
	DeliveryPayload string `json:"delivery_payload,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// --- Synchronous outcomes returned to the caller.

type DepositOutcome struct {
	RequestID   string
	AccountID   uint64
	AmountMinor int64
	Approved    bool
}

// WithdrawReceipt reports the fee split at submission time, for display
// only; nothing is reserved until approval.
type WithdrawReceipt struct {
	RequestID   string
	GrossMinor  int64
	FeeMinor    int64
	PayoutMinor int64
}

type WithdrawOutcome struct {
	RequestID   string
	AccountID   uint64
	GrossMinor  int64
	FeeMinor    int64
	PayoutMinor int64
	Approved    bool
	Reason      string
}

type PurchaseOutcome struct {
	PurchaseID      string
	AccountID       uint64
	ProductName     string
	PriceMinor      int64
	DeliveryPayload string
}
