package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/asikdev/shopledger/internal/infra/pgutils"
	"github.com/asikdev/shopledger/internal/repos/accounts"
	"github.com/asikdev/shopledger/internal/repos/entries"
	"github.com/asikdev/shopledger/internal/repos/requests"
)

// withdrawFee rounds half-up in minor units.
func withdrawFee(amountMinor, feePct int64) int64 {
	return (amountMinor*feePct + 50) / 100
}

// SubmitWithdraw records a pending withdraw request. The balance check
// here is advisory only: nothing is reserved, and the authoritative
// check happens when the admin approves.
func (s *Service) SubmitWithdraw(ctx context.Context, accountID uint64, name string, amountMinor int64, method, address string) (*WithdrawReceipt, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	if amountMinor < s.cfg.MinWithdrawMinor {
		return nil, ErrBelowMinimum
	}

	if !validWithdrawMethod(method) {
		return nil, ErrInvalidMethod
	}

	balance, err := s.accounts.GetBalance(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("pre-check balance: %w", err)
	}

	if amountMinor > balance {
		return nil, accounts.ErrInsufficientFunds
	}

	fee := withdrawFee(amountMinor, s.cfg.WithdrawFeePct)

	req := &requests.Request{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		AccountName: name,
		Kind:        requests.KindWithdraw,
		Method:      method,
		AmountMinor: amountMinor,
		FeeMinor:    fee,
		PayoutMinor: amountMinor - fee,
		Address:     address,
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Ensure(tx, accountID, name)
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}

		return s.requests.Create(tx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("submit withdraw: %w", err)
	}

	s.notifyAdmin(ctx, req.ID, WithdrawSubmitted{
		RequestID:   req.ID,
		AccountID:   accountID,
		AccountName: name,
		GrossMinor:  req.AmountMinor,
		FeeMinor:    req.FeeMinor,
		PayoutMinor: req.PayoutMinor,
		Method:      method,
		Address:     address,
	})

	return &WithdrawReceipt{
		RequestID:   req.ID,
		GrossMinor:  req.AmountMinor,
		FeeMinor:    req.FeeMinor,
		PayoutMinor: req.PayoutMinor,
	}, nil
}

// DecideWithdraw applies the admin's decision exactly once. An approval
// debits the gross amount; if the balance no longer covers it (spent
// while the request sat pending) the approval is corrected to a
// rejection with reason insufficient_balance in the same transaction, so
// the request still resolves terminally and the balance is untouched.
func (s *Service) DecideWithdraw(ctx context.Context, requestID string, decision requests.Decision) (*WithdrawOutcome, error) {
	var (
		req      *requests.Request
		approved bool
		reason   string
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.requests.ClaimDecision(tx, requestID, requests.KindWithdraw, decision)
		if err != nil {
			return err
		}

		req = r

		if decision != requests.DecisionApprove {
			return nil
		}

		err = s.accounts.DebitIfSufficient(tx, r.AccountID, r.AmountMinor)
		if err != nil {
			if errors.Is(err, accounts.ErrInsufficientFunds) {
				reason = requests.ReasonInsufficientBalance
				return s.requests.MarkRejectedInsufficientFunds(tx, r.ID)
			}

			return fmt.Errorf("debit: %w", err)
		}

		approved = true

		err = s.entries.Insert(tx, entries.Entry{
			AccountID:  r.AccountID,
			DeltaMinor: -r.AmountMinor,
			Reason:     entries.ReasonWithdrawApproved,
			RequestID:  r.ID,
		})
		if err != nil {
			return fmt.Errorf("append entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &WithdrawOutcome{
		RequestID:   req.ID,
		AccountID:   req.AccountID,
		GrossMinor:  req.AmountMinor,
		FeeMinor:    req.FeeMinor,
		PayoutMinor: req.PayoutMinor,
		Approved:    approved,
		Reason:      reason,
	}

	s.notifyUser(ctx, req.ID, WithdrawDecided{
		RequestID:   req.ID,
		AccountID:   req.AccountID,
		GrossMinor:  req.AmountMinor,
		FeeMinor:    req.FeeMinor,
		PayoutMinor: req.PayoutMinor,
		Approved:    approved,
		Reason:      reason,
	})

	return outcome, nil
}
