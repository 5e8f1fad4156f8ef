package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

type Subscription struct {
	ID                  string
	SubscriberAccountID string
	CreatorAccountID    string
	PriceMinor          int64
	Status              Status
	NextChargeAt        time.Time
	Period              time.Duration
	FailedAttempts      int
	CancelAtPeriodEnd   bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Subscriptions interface {
	Insert(ctx context.Context, sub Subscription) error
	Get(ctx context.Context, subscriptionID string) (Subscription, error)
	// ListDue returns active and past_due subscriptions whose next charge is
	// at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error)
	// MarkCharged advances the billing clock and restores active status.
	MarkCharged(tx *sql.Tx, subscriptionID string, nextChargeAt time.Time) error
	// MarkPastDue flags a failed charge and counts the attempt.
	MarkPastDue(tx *sql.Tx, subscriptionID string) error
	SetStatus(tx *sql.Tx, subscriptionID string, status Status) error
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error
}
