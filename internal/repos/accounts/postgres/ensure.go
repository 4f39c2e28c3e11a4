package accounts

import (
	"database/sql"
	"fmt"
)

// Ensure upserts the account row at balance 0. A non-empty name refreshes
// the stored display name; the balance of an existing row is never touched.
func (r *accountsRepo) Ensure(tx *sql.Tx, accountID uint64, name string) error {
	_, err := tx.Exec(`
		INSERT INTO accounts (id, name, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (id) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE accounts.name END
	`, accountID, name)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	return nil
}
