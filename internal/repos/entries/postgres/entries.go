package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/asikdev/shopledger/internal/repos/entries"
)

var _ entries.Entries = (*entriesRepo)(nil)

type entriesRepo struct{ db *sql.DB }

func New(db *sql.DB) *entriesRepo {
	return &entriesRepo{db: db}
}

func (r *entriesRepo) Insert(tx *sql.Tx, e entries.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (account_id, delta_minor, reason, request_id)
		VALUES ($1, $2, $3, $4)
	`, e.AccountID, e.DeltaMinor, e.Reason, e.RequestID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return entries.ErrDuplicateEntry
			}
		}

		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}

// BalanceFromEntries derives the balance by summing deltas. The sweeper
// compares it against the materialized accounts.balance to detect
// out-of-band writes.
func (r *entriesRepo) BalanceFromEntries(ctx context.Context, accountID uint64) (int64, error) {
	var sum int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta_minor), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}

	return sum, nil
}

func (r *entriesRepo) ListDrifted(ctx context.Context, limit int) ([]entries.Drift, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.balance, COALESCE(SUM(e.delta_minor), 0)
		FROM accounts a
		LEFT JOIN ledger_entries e ON e.account_id = a.id
		GROUP BY a.id, a.balance
		HAVING a.balance <> COALESCE(SUM(e.delta_minor), 0)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list drifted accounts: %w", err)
	}
	defer rows.Close()

	var out []entries.Drift

	for rows.Next() {
		var d entries.Drift

		err := rows.Scan(&d.AccountID, &d.BalanceMinor, &d.EntrySumMinor)
		if err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}

		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drifts: %w", err)
	}

	return out, nil
}

func (r *entriesRepo) ListByAccount(ctx context.Context, accountID uint64, limit int) ([]entries.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, delta_minor, reason, request_id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []entries.Entry

	for rows.Next() {
		var e entries.Entry

		err := rows.Scan(&e.AccountID, &e.DeltaMinor, &e.Reason, &e.RequestID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return out, nil
}
