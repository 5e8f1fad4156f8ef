package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/glowlive/ledger/internal/repos/outbox"
)

var _ outbox.Outbox = (*outboxRepo)(nil)

type outboxRepo struct{ db *sql.DB }

func New(db *sql.DB) *outboxRepo {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Insert(tx *sql.Tx, msg outbox.Message) error {
	_, err := tx.Exec(`
		INSERT INTO outbox_messages (message_id, event_type, key, payload, status)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.EventType, msg.Key, msg.Payload, string(outbox.StatusPending))
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	return nil
}

func (r *outboxRepo) ListPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, event_type, key, payload, status, attempts, created_at, sent_at
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, string(outbox.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending messages: %w", err)
	}
	defer rows.Close()

	var msgs []outbox.Message

	for rows.Next() {
		var (
			m      outbox.Message
			status string
			sentAt sql.NullTime
		)

		err := rows.Scan(&m.ID, &m.EventType, &m.Key, &m.Payload, &status, &m.Attempts, &m.CreatedAt, &sentAt)
		if err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}

		m.Status = outbox.Status(status)

		if sentAt.Valid {
			t := sentAt.Time
			m.SentAt = &t
		}

		msgs = append(msgs, m)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}

	return msgs, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2, sent_at = now()
		WHERE message_id = $1
	`, messageID, string(outbox.StatusSent))
	if err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}

	return nil
}

func (r *outboxRepo) RecordFailure(ctx context.Context, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET attempts = attempts + 1
		WHERE message_id = $1
	`, messageID)
	if err != nil {
		return fmt.Errorf("record publish failure: %w", err)
	}

	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2, attempts = attempts + 1
		WHERE message_id = $1
	`, messageID, string(outbox.StatusFailed))
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}

	return nil
}
