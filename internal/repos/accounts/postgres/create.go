package accounts

import (
	"context"
	"fmt"

	"github.com/glowlive/ledger/internal/infra/pgutils"
	"github.com/glowlive/ledger/internal/repos/accounts"
)

func (r *accountsRepo) Create(ctx context.Context, accountID string) (accounts.Account, error) {
	var acc accounts.Account

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (account_id, balance_minor, version)
		VALUES ($1, 0, 1)
		RETURNING account_id, balance_minor, version, updated_at
	`, accountID).Scan(&acc.ID, &acc.BalanceMinor, &acc.Version, &acc.UpdatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return accounts.Account{}, accounts.ErrAccountExists
		}

		return accounts.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}
