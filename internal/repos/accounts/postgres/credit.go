package accounts

import (
	"database/sql"
	"fmt"
)

// Credit adds amountMinor to the account, creating the row if needed.
// Amount validation (> 0) is the ledger engine's job.
func (r *accountsRepo) Credit(tx *sql.Tx, accountID uint64, amountMinor int64) error {
	err := r.Ensure(tx, accountID, "")
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE accounts
		SET balance = balance + $2
		WHERE id = $1
	`, accountID, amountMinor)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	return nil
}
