package accounts

import (
	"database/sql"
	"fmt"

	"github.com/glowlive/ledger/internal/repos/accounts"
)

// UpdateBalance is the compare-and-swap write every transfer goes through.
// The WHERE version clause makes concurrent writers on the same account
// serialize: the loser gets zero rows and must re-read.
func (r *accountsRepo) UpdateBalance(tx *sql.Tx, accountID string, balanceMinor int64, expectedVersion int64) error {
	res, err := tx.Exec(`
		UPDATE accounts
		SET balance_minor = $2,
		    version = version + 1,
		    updated_at = now()
		WHERE account_id = $1
		  AND version = $3
	`, accountID, balanceMinor, expectedVersion)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrVersionConflict
	}

	return nil
}
