package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asikdev/shopledger/internal/repos/requests"
)

var _ requests.Requests = (*requestsRepo)(nil)

type requestsRepo struct{ db *sql.DB }

func New(db *sql.DB) *requestsRepo {
	return &requestsRepo{db: db}
}

const requestColumns = `
	id, account_id, account_name, kind, method,
	amount_minor, fee_minor, payout_minor,
	sender, address, tx_ref, screenshot_ref,
	status, reason, created_at, decided_at,
	admin_notified, user_notified
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*requests.Request, error) {
	var (
		req       requests.Request
		decidedAt sql.NullTime
	)

	err := row.Scan(
		&req.ID, &req.AccountID, &req.AccountName, &req.Kind, &req.Method,
		&req.AmountMinor, &req.FeeMinor, &req.PayoutMinor,
		&req.Sender, &req.Address, &req.TxRef, &req.ScreenshotRef,
		&req.Status, &req.Reason, &req.CreatedAt, &decidedAt,
		&req.AdminNotified, &req.UserNotified,
	)
	if err != nil {
		return nil, err
	}

	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}

	return &req, nil
}

func (r *requestsRepo) Create(tx *sql.Tx, req *requests.Request) error {
	err := tx.QueryRow(`
		INSERT INTO requests (
			id, account_id, account_name, kind, method,
			amount_minor, fee_minor, payout_minor,
			sender, address, tx_ref, screenshot_ref,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'pending')
		RETURNING created_at
	`,
		req.ID, req.AccountID, req.AccountName, req.Kind, req.Method,
		req.AmountMinor, req.FeeMinor, req.PayoutMinor,
		req.Sender, req.Address, req.TxRef, req.ScreenshotRef,
	).Scan(&req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	req.Status = requests.StatusPending

	return nil
}

func (r *requestsRepo) Get(ctx context.Context, id string) (*requests.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, requests.ErrNotFound
		}

		return nil, fmt.Errorf("get request: %w", err)
	}

	return req, nil
}

// ClaimDecision transitions the request out of pending exactly once.
// The row lock serializes concurrent decisions on the same request: the
// first caller wins, every later one observes the new status and gets
// ErrAlreadyDecided without mutating anything.
func (r *requestsRepo) ClaimDecision(tx *sql.Tx, id string, kind requests.Kind, decision requests.Decision) (*requests.Request, error) {
	req, err := scanRequest(tx.QueryRow(`
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, requests.ErrNotFound
		}

		return nil, fmt.Errorf("lock request: %w", err)
	}

	if req.Kind != kind {
		return nil, requests.ErrNotFound
	}

	if req.Status != requests.StatusPending {
		return nil, requests.ErrAlreadyDecided
	}

	status := requests.StatusRejected
	if decision == requests.DecisionApprove {
		status = requests.StatusApproved
	}

	err = tx.QueryRow(`
		UPDATE requests
		SET status = $2, decided_at = now()
		WHERE id = $1
		RETURNING decided_at
	`, id, status).Scan(&req.DecidedAt)
	if err != nil {
		return nil, fmt.Errorf("transition request: %w", err)
	}

	req.Status = status

	return req, nil
}

// MarkRejectedInsufficientFunds is the only legal transition out of
// approved: a withdraw approval whose debit found the balance short.
func (r *requestsRepo) MarkRejectedInsufficientFunds(tx *sql.Tx, id string) error {
	res, err := tx.Exec(`
		UPDATE requests
		SET status = 'rejected', reason = $2
		WHERE id = $1
		  AND kind = 'withdraw'
		  AND status = 'approved'
	`, id, requests.ReasonInsufficientBalance)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return requests.ErrNotFound
	}

	return nil
}

func (r *requestsRepo) MarkAdminNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET admin_notified = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark admin notified: %w", err)
	}

	return nil
}

func (r *requestsRepo) MarkUserNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET user_notified = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark user notified: %w", err)
	}

	return nil
}

func (r *requestsRepo) ListByAccount(ctx context.Context, accountID uint64, kind requests.Kind, limit int) ([]requests.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE account_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, accountID, kind, limit)
}

func (r *requestsRepo) list(ctx context.Context, query string, args ...any) ([]requests.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []requests.Request

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}

		out = append(out, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	return out, nil
}
