package payouts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrPayoutNotFound = errors.New("payout not found")

// ErrInvalidTransition means the payout was not in the expected status.
// Conditional updates return it instead of clobbering terminal states, and
// it is what makes a double-approval debit an account only once.
var ErrInvalidTransition = errors.New("invalid payout status transition")

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusRejected   Status = "rejected"
)

type Payout struct {
	ID           string
	AccountID    string
	AmountMinor  int64
	Status       Status
	Reason       string
	PayeeDetails string
	CreatedAt    time.Time
	DecidedAt    *time.Time
}

type Payouts interface {
	Insert(tx *sql.Tx, p Payout) error
	Get(ctx context.Context, payoutID string) (Payout, error)
	// UpdateStatus transitions from -> to, recording reason and decidedAt.
	// Returns ErrInvalidTransition when the row is not currently in from.
	UpdateStatus(tx *sql.Tx, payoutID string, from, to Status, reason string, decidedAt *time.Time) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]Payout, error)
}
