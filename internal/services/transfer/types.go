package transfer

import "errors"

type Kind string

const (
	KindTopUp              Kind = "top-up"
	KindGift               Kind = "gift"
	KindSubscriptionCharge Kind = "subscription-charge"
	KindPayoutDebit        Kind = "payout-debit"
	KindCompensation       Kind = "compensation"
)

// Request is the single entry point for every balance change on the
// platform. RequestID is the caller-supplied idempotency key: re-submitting
// the same id returns the original outcome instead of re-applying.
type Request struct {
	RequestID     string
	Kind          Kind
	FromAccountID string // empty for top-ups and compensations
	ToAccountID   string // empty for payout debits
	AmountMinor   int64
	GiftID        string // required for gifts, checked against the catalog
}

type Outcome struct {
	JournalEntryID string
	CauseID        string
	// Duplicate is set when a previously journaled outcome was returned.
	Duplicate bool
}

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidRequest      = errors.New("invalid transfer request")
	ErrPriceMismatch       = errors.New("amount does not match catalog price")
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConflict means concurrent writers kept winning past the retry
	// budget. The operation was not applied and is safe to retry.
	ErrConflict = errors.New("transfer aborted after repeated conflicts")
)
