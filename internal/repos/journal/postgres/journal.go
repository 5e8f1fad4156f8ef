package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/glowlive/ledger/internal/infra/pgutils"
	"github.com/glowlive/ledger/internal/repos/journal"
)

var _ journal.Journal = (*journalRepo)(nil)

type journalRepo struct{ db *sql.DB }

func New(db *sql.DB) *journalRepo {
	return &journalRepo{db: db}
}

func (r *journalRepo) Insert(tx *sql.Tx, e journal.Entry) error {
	var counterparty any
	if e.CounterpartyAccountID != "" {
		counterparty = e.CounterpartyAccountID
	}

	_, err := tx.Exec(`
		INSERT INTO journal_entries
			(entry_id, request_id, kind, account_id, amount_minor, counterparty_account_id, cause_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.EntryID, e.RequestID, string(e.Kind), e.AccountID, e.AmountMinor, counterparty, e.CauseID)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return journal.ErrDuplicateRequest
		}

		return fmt.Errorf("insert journal entry: %w", err)
	}

	return nil
}

const selectEntries = `
	SELECT entry_id, request_id, kind, account_id, amount_minor, counterparty_account_id, cause_id, created_at
	FROM journal_entries
`

func (r *journalRepo) GetByRequestID(ctx context.Context, requestID string) ([]journal.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+`
		WHERE request_id = $1
		ORDER BY amount_minor ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query by request id: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *journalRepo) ListByCause(ctx context.Context, causeID string) ([]journal.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+`
		WHERE cause_id = $1
		ORDER BY amount_minor ASC
	`, causeID)
	if err != nil {
		return nil, fmt.Errorf("query by cause id: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *journalRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]journal.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+`
		WHERE account_id = $1
		ORDER BY created_at DESC, entry_id
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]journal.Entry, error) {
	var entries []journal.Entry

	for rows.Next() {
		var (
			e            journal.Entry
			kind         string
			counterparty sql.NullString
		)

		err := rows.Scan(&e.EntryID, &e.RequestID, &kind, &e.AccountID,
			&e.AmountMinor, &counterparty, &e.CauseID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		e.Kind = journal.Kind(kind)
		e.CounterpartyAccountID = counterparty.String
		entries = append(entries, e)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	return entries, nil
}
