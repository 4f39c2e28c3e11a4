package accounts

import (
	"database/sql"
	"fmt"

	"github.com/asikdev/shopledger/internal/repos/accounts"
)

// DebitIfSufficient decrements the balance only when it covers amountMinor.
// The sufficiency check and the decrement are one guarded UPDATE, so two
// concurrent debits can never both pass on funds that cover only one.
// A missing account is an empty account: ErrInsufficientFunds.
func (r *accountsRepo) DebitIfSufficient(tx *sql.Tx, accountID uint64, amountMinor int64) error {
	res, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance - $2
		WHERE id = $1
		  AND balance >= $2
	`, accountID, amountMinor)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrInsufficientFunds
	}

	return nil
}
