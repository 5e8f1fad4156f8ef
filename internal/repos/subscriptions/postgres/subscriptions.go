package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glowlive/ledger/internal/repos/subscriptions"
)

var _ subscriptions.Subscriptions = (*subscriptionsRepo)(nil)

type subscriptionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *subscriptionsRepo {
	return &subscriptionsRepo{db: db}
}

func (r *subscriptionsRepo) Insert(ctx context.Context, sub subscriptions.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(subscription_id, subscriber_account_id, creator_account_id, price_minor,
			 status, next_charge_at, period_seconds, failed_attempts, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sub.ID, sub.SubscriberAccountID, sub.CreatorAccountID, sub.PriceMinor,
		string(sub.Status), sub.NextChargeAt, int64(sub.Period/time.Second),
		sub.FailedAttempts, sub.CancelAtPeriodEnd)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

const selectSubscription = `
	SELECT subscription_id, subscriber_account_id, creator_account_id, price_minor,
	       status, next_charge_at, period_seconds, failed_attempts, cancel_at_period_end,
	       created_at, updated_at
	FROM subscriptions
`

func (r *subscriptionsRepo) Get(ctx context.Context, subscriptionID string) (subscriptions.Subscription, error) {
	row := r.db.QueryRowContext(ctx, selectSubscription+`WHERE subscription_id = $1`, subscriptionID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subscriptions.Subscription{}, subscriptions.ErrSubscriptionNotFound
		}

		return subscriptions.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}

	return sub, nil
}

func (r *subscriptionsRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]subscriptions.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, selectSubscription+`
		WHERE status IN ($1, $2)
		  AND next_charge_at <= $3
		ORDER BY next_charge_at ASC
		LIMIT $4
	`, string(subscriptions.StatusActive), string(subscriptions.StatusPastDue), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	var result []subscriptions.Subscription

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}

		result = append(result, sub)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return result, nil
}

func (r *subscriptionsRepo) MarkCharged(tx *sql.Tx, subscriptionID string, nextChargeAt time.Time) error {
	return execTx(tx, subscriptionID, `
		UPDATE subscriptions
		SET status = 'active',
		    next_charge_at = $2,
		    failed_attempts = 0,
		    updated_at = now()
		WHERE subscription_id = $1
	`, nextChargeAt)
}

func (r *subscriptionsRepo) MarkPastDue(tx *sql.Tx, subscriptionID string) error {
	return execTx(tx, subscriptionID, `
		UPDATE subscriptions
		SET status = 'past_due',
		    failed_attempts = failed_attempts + 1,
		    updated_at = now()
		WHERE subscription_id = $1
	`)
}

func (r *subscriptionsRepo) SetStatus(tx *sql.Tx, subscriptionID string, status subscriptions.Status) error {
	return execTx(tx, subscriptionID, `
		UPDATE subscriptions
		SET status = $2,
		    updated_at = now()
		WHERE subscription_id = $1
	`, string(status))
}

func (r *subscriptionsRepo) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET cancel_at_period_end = $2,
		    updated_at = now()
		WHERE subscription_id = $1
	`, subscriptionID, cancel)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return checkAffected(res)
}

func execTx(tx *sql.Tx, subscriptionID, query string, args ...any) error {
	res, err := tx.Exec(query, append([]any{subscriptionID}, args...)...)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return subscriptions.ErrSubscriptionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (subscriptions.Subscription, error) {
	var (
		sub           subscriptions.Subscription
		status        string
		periodSeconds int64
	)

	err := row.Scan(&sub.ID, &sub.SubscriberAccountID, &sub.CreatorAccountID,
		&sub.PriceMinor, &status, &sub.NextChargeAt, &periodSeconds,
		&sub.FailedAttempts, &sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return subscriptions.Subscription{}, err
	}

	sub.Status = subscriptions.Status(status)
	sub.Period = time.Duration(periodSeconds) * time.Second

	return sub, nil
}
