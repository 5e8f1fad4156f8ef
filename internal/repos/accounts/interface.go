package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrAccountExists = errors.New("account already exists")
var ErrVersionConflict = errors.New("account version conflict")

// Account is one balance row. Version is a monotonic counter used for
// optimistic concurrency: every balance write is conditioned on it.
type Account struct {
	ID           string
	BalanceMinor int64
	Version      int64
	UpdatedAt    time.Time
}

type Accounts interface {
	Create(ctx context.Context, accountID string) (Account, error)
	Get(ctx context.Context, accountID string) (Account, error)
	GetTx(tx *sql.Tx, accountID string) (Account, error)
	// UpdateBalance sets the balance conditioned on expectedVersion and bumps
	// the version. Returns ErrVersionConflict when a concurrent writer got
	// there first.
	UpdateBalance(tx *sql.Tx, accountID string, balanceMinor int64, expectedVersion int64) error
}
