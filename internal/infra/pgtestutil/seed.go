package pgtestutil

import (
	"database/sql"
	"testing"
)

// SeedAccount upserts an account with the given balance for test setup.
func SeedAccount(t *testing.T, db *sql.DB, accountID string, balanceMinor int64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO accounts (account_id, balance_minor) VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET balance_minor = EXCLUDED.balance_minor
	`, accountID, balanceMinor)
	if err != nil {
		t.Fatalf("seed account %s: %v", accountID, err)
	}
}

// AccountBalance reads a balance directly, bypassing the repos.
func AccountBalance(t *testing.T, db *sql.DB, accountID string) int64 {
	t.Helper()

	var balance int64

	err := db.QueryRow(`SELECT balance_minor FROM accounts WHERE account_id = $1`, accountID).
		Scan(&balance)
	if err != nil {
		t.Fatalf("read balance %s: %v", accountID, err)
	}

	return balance
}
