package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asikdev/shopledger/internal/infra/pgutils"
	"github.com/asikdev/shopledger/internal/repos/accounts"
	"github.com/asikdev/shopledger/internal/repos/entries"
	"github.com/asikdev/shopledger/internal/repos/requests"
)

const sweepBatch = 50

// Sweeper periodically reapplies balance effects for requests whose
// decision was recorded without one, redelivers notifications that never
// went out, and reports ledger drift. It is safe to run alongside live
// traffic and alongside other sweepers: the entry unique key makes every
// replay exactly-once.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	return &Sweeper{svc: svc, interval: interval}
}

// Run blocks until ctx is canceled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.svc.SweepOnce(ctx)
			if err != nil {
				slog.Error("reconciliation sweep", "error", err)
			}
		}
	}
}

// SweepOnce runs a single reconciliation pass.
func (s *Service) SweepOnce(ctx context.Context) error {
	err := s.replayUnapplied(ctx)
	if err != nil {
		return fmt.Errorf("replay unapplied: %w", err)
	}

	err = s.retryAdminAlerts(ctx)
	if err != nil {
		return fmt.Errorf("retry admin alerts: %w", err)
	}

	err = s.retryUserEvents(ctx)
	if err != nil {
		return fmt.Errorf("retry user events: %w", err)
	}

	return s.reportDrift(ctx)
}

var errNeedsCorrection = errors.New("approved withdraw no longer funded")

// replayUnapplied reapplies the balance mutation for approved requests
// that have no ledger entry. The entry is inserted before the balance
// write so the unique key aborts a replay that raced the original
// application (or another sweeper) before any double-apply can happen.
func (s *Service) replayUnapplied(ctx context.Context) error {
	reqs, err := s.requests.ListUnappliedApproved(ctx, sweepBatch)
	if err != nil {
		return err
	}

	for i := range reqs {
		req := &reqs[i]

		err := s.replayOne(ctx, req)

		switch {
		case err == nil:
			slog.Info("replayed unapplied decision",
				"request_id", req.ID, "kind", req.Kind, "account_id", req.AccountID)
		case errors.Is(err, entries.ErrDuplicateEntry):
			// already applied, nothing to do
		case errors.Is(err, errNeedsCorrection):
			cerr := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
				return s.requests.MarkRejectedInsufficientFunds(tx, req.ID)
			})
			if cerr != nil {
				return fmt.Errorf("correct request %s: %w", req.ID, cerr)
			}

			slog.Warn("corrected unfunded withdraw approval",
				"request_id", req.ID, "account_id", req.AccountID)
		default:
			return fmt.Errorf("replay request %s: %w", req.ID, err)
		}
	}

	return nil
}

func (s *Service) replayOne(ctx context.Context, req *requests.Request) error {
	return pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		delta := req.AmountMinor
		reason := entries.ReasonDepositApproved

		if req.Kind == requests.KindWithdraw {
			delta = -req.AmountMinor
			reason = entries.ReasonWithdrawApproved
		}

		err := s.entries.Insert(tx, entries.Entry{
			AccountID:  req.AccountID,
			DeltaMinor: delta,
			Reason:     reason,
			RequestID:  req.ID,
		})
		if err != nil {
			return err
		}

		if req.Kind == requests.KindDeposit {
			return s.accounts.Credit(tx, req.AccountID, req.AmountMinor)
		}

		err = s.accounts.DebitIfSufficient(tx, req.AccountID, req.AmountMinor)
		if errors.Is(err, accounts.ErrInsufficientFunds) {
			return errNeedsCorrection
		}

		return err
	})
}

func (s *Service) retryAdminAlerts(ctx context.Context) error {
	reqs, err := s.requests.ListAdminUnnotified(ctx, sweepBatch)
	if err != nil {
		return err
	}

	for i := range reqs {
		req := &reqs[i]

		if req.Kind == requests.KindDeposit {
			s.notifyAdmin(ctx, req.ID, DepositSubmitted{
				RequestID:     req.ID,
				AccountID:     req.AccountID,
				AccountName:   req.AccountName,
				AmountMinor:   req.AmountMinor,
				Method:        req.Method,
				Sender:        req.Sender,
				TxRef:         req.TxRef,
				ScreenshotRef: req.ScreenshotRef,
			})

			continue
		}

		s.notifyAdmin(ctx, req.ID, WithdrawSubmitted{
			RequestID:   req.ID,
			AccountID:   req.AccountID,
			AccountName: req.AccountName,
			GrossMinor:  req.AmountMinor,
			FeeMinor:    req.FeeMinor,
			PayoutMinor: req.PayoutMinor,
			Method:      req.Method,
			Address:     req.Address,
		})
	}

	return nil
}

func (s *Service) retryUserEvents(ctx context.Context) error {
	reqs, err := s.requests.ListUserUnnotified(ctx, sweepBatch)
	if err != nil {
		return err
	}

	for i := range reqs {
		req := &reqs[i]
		approved := req.Status == requests.StatusApproved

		if req.Kind == requests.KindDeposit {
			s.notifyUser(ctx, req.ID, DepositDecided{
				RequestID:   req.ID,
				AccountID:   req.AccountID,
				AmountMinor: req.AmountMinor,
				Approved:    approved,
			})

			continue
		}

		s.notifyUser(ctx, req.ID, WithdrawDecided{
			RequestID:   req.ID,
			AccountID:   req.AccountID,
			GrossMinor:  req.AmountMinor,
			FeeMinor:    req.FeeMinor,
			PayoutMinor: req.PayoutMinor,
			Approved:    approved,
			Reason:      req.Reason,
		})
	}

	return nil
}

func (s *Service) reportDrift(ctx context.Context) error {
	drifts, err := s.entries.ListDrifted(ctx, sweepBatch)
	if err != nil {
		return err
	}

	for _, d := range drifts {
		slog.Error("ledger drift detected",
			"account_id", d.AccountID,
			"balance_minor", d.BalanceMinor,
			"entry_sum_minor", d.EntrySumMinor)
	}

	return nil
}
