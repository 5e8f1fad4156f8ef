package payouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glowlive/ledger/internal/repos/payouts"
)

var _ payouts.Payouts = (*payoutsRepo)(nil)

type payoutsRepo struct{ db *sql.DB }

func New(db *sql.DB) *payoutsRepo {
	return &payoutsRepo{db: db}
}

func (r *payoutsRepo) Insert(tx *sql.Tx, p payouts.Payout) error {
	_, err := tx.Exec(`
		INSERT INTO payout_requests
			(payout_id, account_id, amount_minor, status, reason, payee_details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.AccountID, p.AmountMinor, string(p.Status), p.Reason, p.PayeeDetails)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	return nil
}

const selectPayout = `
	SELECT payout_id, account_id, amount_minor, status, reason, payee_details, created_at, decided_at
	FROM payout_requests
`

func (r *payoutsRepo) Get(ctx context.Context, payoutID string) (payouts.Payout, error) {
	row := r.db.QueryRowContext(ctx, selectPayout+`WHERE payout_id = $1`, payoutID)

	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Payout{}, payouts.ErrPayoutNotFound
		}

		return payouts.Payout{}, fmt.Errorf("get payout: %w", err)
	}

	return p, nil
}

func (r *payoutsRepo) UpdateStatus(tx *sql.Tx, payoutID string, from, to payouts.Status, reason string, decidedAt *time.Time) error {
	res, err := tx.Exec(`
		UPDATE payout_requests
		SET status = $3,
		    reason = $4,
		    decided_at = $5
		WHERE payout_id = $1
		  AND status = $2
	`, payoutID, string(from), string(to), reason, decidedAt)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return payouts.ErrInvalidTransition
	}

	return nil
}

func (r *payoutsRepo) ListByStatus(ctx context.Context, status payouts.Status, limit int) ([]payouts.Payout, error) {
	rows, err := r.db.QueryContext(ctx, selectPayout+`
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var result []payouts.Payout

	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}

		result = append(result, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayout(row rowScanner) (payouts.Payout, error) {
	var (
		p         payouts.Payout
		status    string
		reason    sql.NullString
		decidedAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.AccountID, &p.AmountMinor, &status, &reason,
		&p.PayeeDetails, &p.CreatedAt, &decidedAt)
	if err != nil {
		return payouts.Payout{}, err
	}

	p.Status = payouts.Status(status)
	p.Reason = reason.String

	if decidedAt.Valid {
		t := decidedAt.Time
		p.DecidedAt = &t
	}

	return p, nil
}
