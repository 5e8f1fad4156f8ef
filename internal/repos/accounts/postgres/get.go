package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glowlive/ledger/internal/repos/accounts"
)

const getQuery = `
	SELECT account_id, balance_minor, version, updated_at
	FROM accounts
	WHERE account_id = $1
`

func (r *accountsRepo) Get(ctx context.Context, accountID string) (accounts.Account, error) {
	var acc accounts.Account

	err := r.db.QueryRowContext(ctx, getQuery, accountID).
		Scan(&acc.ID, &acc.BalanceMinor, &acc.Version, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

func (r *accountsRepo) GetTx(tx *sql.Tx, accountID string) (accounts.Account, error) {
	var acc accounts.Account

	err := tx.QueryRow(getQuery, accountID).
		Scan(&acc.ID, &acc.BalanceMinor, &acc.Version, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account in tx: %w", err)
	}

	return acc, nil
}
