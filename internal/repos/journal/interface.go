package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicateRequest means an entry for this (request, account) pair is
// already journaled. Callers treat it as "the transfer already happened".
var ErrDuplicateRequest = errors.New("duplicate transfer request")

type Kind string

const (
	KindTopUp              Kind = "top-up"
	KindGiftDebit          Kind = "gift-debit"
	KindGiftCredit         Kind = "gift-credit"
	KindSubscriptionCharge Kind = "subscription-charge"
	KindPayoutDebit        Kind = "payout-debit"
	KindCompensation       Kind = "compensation"
)

// Entry is one immutable journal row. AmountMinor is signed: debits are
// negative, credits positive. The two entries of a paired transfer share a
// CauseID and their amounts sum to zero.
type Entry struct {
	EntryID               string
	RequestID             string
	Kind                  Kind
	AccountID             string
	AmountMinor           int64
	CounterpartyAccountID string // empty when the value came from outside the ledger
	CauseID               string
	CreatedAt             time.Time
}

type Journal interface {
	Insert(tx *sql.Tx, entry Entry) error
	GetByRequestID(ctx context.Context, requestID string) ([]Entry, error)
	ListByCause(ctx context.Context, causeID string) ([]Entry, error)
	// ListByAccount returns entries newest-first for statement queries.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error)
}
