package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowlive/ledger/internal/infra/pgutils"
	"github.com/glowlive/ledger/internal/repos/subscriptions"
	"github.com/glowlive/ledger/internal/services/transfer"
)

// RunOnce charges every due subscription. Each subscription is processed
// independently: one failing charge never blocks the rest of the scan, and a
// crash mid-pass is safe because charge request ids are derived from
// (subscription, period) and de-duplicated by the engine.
func (s *Service) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := s.subs.ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("scan due subscriptions: %w", err)
	}

	for _, sub := range due {
		err := s.processDue(ctx, sub)
		if err != nil {
			slog.Error("reconcile subscription", "subscription_id", sub.ID, "error", err)
		}
	}

	return nil
}

func (s *Service) processDue(ctx context.Context, sub subscriptions.Subscription) error {
	// A period-end cancellation is due exactly when its next charge would
	// have been; it cancels instead of charging.
	if sub.CancelAtPeriodEnd {
		return s.transition(ctx, sub, subscriptions.StatusCanceled, sub.NextChargeAt)
	}

	_, err := s.engine.Execute(ctx, transfer.Request{
		RequestID:     ChargeRequestID(sub.ID, sub.NextChargeAt),
		Kind:          transfer.KindSubscriptionCharge,
		FromAccountID: sub.SubscriberAccountID,
		ToAccountID:   sub.CreatorAccountID,
		AmountMinor:   sub.PriceMinor,
	})

	switch {
	case err == nil:
		return s.applyCharged(ctx, sub)

	case errors.Is(err, transfer.ErrInsufficientBalance):
		if sub.FailedAttempts+1 >= s.cfg.MaxChargeAttempts {
			return s.transition(ctx, sub, subscriptions.StatusCanceled, sub.NextChargeAt)
		}

		return s.applyPastDue(ctx, sub)

	default:
		// Conflict, store trouble: leave the row due and let the next pass
		// retry with the same request id.
		return fmt.Errorf("charge subscription: %w", err)
	}
}

func (s *Service) applyCharged(ctx context.Context, sub subscriptions.Subscription) error {
	next := sub.NextChargeAt.Add(sub.Period)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.subs.MarkCharged(tx, sub.ID, next)
		if err != nil {
			return err
		}

		// Recovery from past_due is a visible status change.
		if sub.Status == subscriptions.StatusPastDue {
			return s.emitStatus(tx, sub, subscriptions.StatusActive, next)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("advance billing period: %w", err)
	}

	return nil
}

func (s *Service) applyPastDue(ctx context.Context, sub subscriptions.Subscription) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.subs.MarkPastDue(tx, sub.ID)
		if err != nil {
			return err
		}

		if sub.Status != subscriptions.StatusPastDue {
			return s.emitStatus(tx, sub, subscriptions.StatusPastDue, sub.NextChargeAt)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("mark past due: %w", err)
	}

	return nil
}

// ChargeRequestID is deterministic per billing period, so a reconciler
// crash-and-restart, or a past_due retry after a top-up, reuses the same
// idempotency key and can never double-charge a period.
func ChargeRequestID(subscriptionID string, periodStart time.Time) string {
	return fmt.Sprintf("subcharge:%s:%d", subscriptionID, periodStart.Unix())
}
