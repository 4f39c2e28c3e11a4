package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/asikdev/shopledger/internal/infra/pgutils"
	"github.com/asikdev/shopledger/internal/repos/entries"
	"github.com/asikdev/shopledger/internal/repos/requests"
)

// SubmitDeposit records a pending deposit request and alerts the admin
// channel. No balance changes here: credit happens only on approval.
func (s *Service) SubmitDeposit(ctx context.Context, accountID uint64, name string, amountMinor int64, method, sender, txRef, screenshotRef string) (string, error) {
	if amountMinor <= 0 {
		return "", ErrInvalidAmount
	}

	if !validDepositMethod(method) {
		return "", ErrInvalidMethod
	}

	req := &requests.Request{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		AccountName:   name,
		Kind:          requests.KindDeposit,
		Method:        method,
		AmountMinor:   amountMinor,
		Sender:        sender,
		TxRef:         txRef,
		ScreenshotRef: screenshotRef,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Ensure(tx, accountID, name)
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}

		return s.requests.Create(tx, req)
	})
	if err != nil {
		return "", fmt.Errorf("submit deposit: %w", err)
	}

	s.notifyAdmin(ctx, req.ID, DepositSubmitted{
		RequestID:     req.ID,
		AccountID:     accountID,
		AccountName:   name,
		AmountMinor:   amountMinor,
		Method:        method,
		Sender:        sender,
		TxRef:         txRef,
		ScreenshotRef: screenshotRef,
	})

	return req.ID, nil
}

// DecideDeposit applies the admin's decision exactly once. The claim and
// the credit commit together; a second decision on the same request sees
// ErrAlreadyDecided and touches nothing.
func (s *Service) DecideDeposit(ctx context.Context, requestID string, decision requests.Decision) (*DepositOutcome, error) {
	var req *requests.Request

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.requests.ClaimDecision(tx, requestID, requests.KindDeposit, decision)
		if err != nil {
			return err
		}

		req = r

		if decision != requests.DecisionApprove {
			return nil
		}

		err = s.accounts.Credit(tx, r.AccountID, r.AmountMinor)
		if err != nil {
			return fmt.Errorf("credit: %w", err)
		}

		err = s.entries.Insert(tx, entries.Entry{
			AccountID:  r.AccountID,
			DeltaMinor: r.AmountMinor,
			Reason:     entries.ReasonDepositApproved,
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

	outcome := &DepositOutcome{
		RequestID:   req.ID,
		AccountID:   req.AccountID,
		AmountMinor: req.AmountMinor,
		Approved:    decision == requests.DecisionApprove,
	}

	s.notifyUser(ctx, req.ID, DepositDecided{
		RequestID:   req.ID,
		AccountID:   req.AccountID,
		AmountMinor: req.AmountMinor,
		Approved:    outcome.Approved,
	})

	return outcome, nil
}
