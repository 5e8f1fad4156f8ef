package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowlive/ledger/internal/events"
	"github.com/glowlive/ledger/internal/infra/pgutils"
	"github.com/glowlive/ledger/internal/repos/accounts"
	pgaccounts "github.com/glowlive/ledger/internal/repos/accounts/postgres"
	"github.com/glowlive/ledger/internal/repos/outbox"
	pgoutbox "github.com/glowlive/ledger/internal/repos/outbox/postgres"
	"github.com/glowlive/ledger/internal/repos/subscriptions"
	pgsubs "github.com/glowlive/ledger/internal/repos/subscriptions/postgres"
	"github.com/glowlive/ledger/internal/services/transfer"
)

var ErrInvalidSubscription = errors.New("invalid subscription")

type Config struct {
	// MaxChargeAttempts bounds past_due retries before cancellation.
	MaxChargeAttempts int
	// BatchSize caps how many due subscriptions one reconciler pass takes.
	BatchSize int
}

// Service owns the membership-subscription state machine. Every charge goes
// through the transfer engine; the service never writes balances itself.
type Service struct {
	db     *sql.DB
	subs   subscriptions.Subscriptions
	box    outbox.Outbox
	accts  accounts.Accounts
	engine *transfer.Engine
	cfg    Config
}

func New(db *sql.DB, engine *transfer.Engine, cfg Config) *Service {
	return &Service{
		db:     db,
		subs:   pgsubs.New(db),
		box:    pgoutbox.New(db),
		accts:  pgaccounts.New(db),
		engine: engine,
		cfg:    cfg,
	}
}

// Create registers an active membership. The first charge is taken by the
// reconciler on its next pass: next_charge_at starts at now.
func (s *Service) Create(ctx context.Context, subscriberID, creatorID string, priceMinor int64, period time.Duration) (subscriptions.Subscription, error) {
	if priceMinor <= 0 {
		return subscriptions.Subscription{}, fmt.Errorf("%w: price must be positive", ErrInvalidSubscription)
	}

	if period <= 0 {
		return subscriptions.Subscription{}, fmt.Errorf("%w: period must be positive", ErrInvalidSubscription)
	}

	if subscriberID == creatorID {
		return subscriptions.Subscription{}, fmt.Errorf("%w: cannot subscribe to yourself", ErrInvalidSubscription)
	}

	for _, id := range []string{subscriberID, creatorID} {
		_, err := s.accts.Get(ctx, id)
		if err != nil {
			return subscriptions.Subscription{}, fmt.Errorf("check account %q: %w", id, err)
		}
	}

	sub := subscriptions.Subscription{
		ID:                  uuid.NewString(),
		SubscriberAccountID: subscriberID,
		CreatorAccountID:    creatorID,
		PriceMinor:          priceMinor,
		Status:              subscriptions.StatusActive,
		NextChargeAt:        time.Now().UTC(),
		Period:              period,
	}

	err := s.subs.Insert(ctx, sub)
	if err != nil {
		return subscriptions.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	return s.subs.Get(ctx, sub.ID)
}

// Cancel ends a membership. With atPeriodEnd the subscription keeps running
// until its current period elapses; otherwise the status flips immediately.
// Neither form touches any balance.
func (s *Service) Cancel(ctx context.Context, subscriptionID string, atPeriodEnd bool) (subscriptions.Subscription, error) {
	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return subscriptions.Subscription{}, err
	}

	if sub.Status == subscriptions.StatusCanceled {
		return sub, nil
	}

	if atPeriodEnd {
		err = s.subs.SetCancelAtPeriodEnd(ctx, subscriptionID, true)
		if err != nil {
			return subscriptions.Subscription{}, err
		}

		return s.subs.Get(ctx, subscriptionID)
	}

	err = s.transition(ctx, sub, subscriptions.StatusCanceled, sub.NextChargeAt)
	if err != nil {
		return subscriptions.Subscription{}, err
	}

	return s.subs.Get(ctx, subscriptionID)
}

func (s *Service) Get(ctx context.Context, subscriptionID string) (subscriptions.Subscription, error) {
	return s.subs.Get(ctx, subscriptionID)
}

// transition applies a status change and its notifier event atomically.
func (s *Service) transition(ctx context.Context, sub subscriptions.Subscription, status subscriptions.Status, nextChargeAt time.Time) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.subs.SetStatus(tx, sub.ID, status)
		if err != nil {
			return err
		}

		return s.emitStatus(tx, sub, status, nextChargeAt)
	})
	if err != nil {
		return fmt.Errorf("transition subscription to %s: %w", status, err)
	}

	return nil
}

func (s *Service) emitStatus(tx *sql.Tx, sub subscriptions.Subscription, status subscriptions.Status, nextChargeAt time.Time) error {
	msg, err := events.NewMessage(events.TypeSubscriptionStatusChanged, sub.SubscriberAccountID, events.SubscriptionStatusChanged{
		SubscriptionID:      sub.ID,
		SubscriberAccountID: sub.SubscriberAccountID,
		CreatorAccountID:    sub.CreatorAccountID,
		Status:              string(status),
		NextChargeAt:        nextChargeAt,
		OccurredAt:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.box.Insert(tx, msg)
}
