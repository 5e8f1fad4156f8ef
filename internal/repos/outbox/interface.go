package outbox

import (
	"context"
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Message is one event waiting to be published. Rows are written in the same
// DB transaction as the ledger change they describe, so a transfer is durable
// before any notification is attempted.
type Message struct {
	ID        string
	EventType string
	Key       string
	Payload   []byte
	Status    Status
	Attempts  int
	CreatedAt time.Time
	SentAt    *time.Time
}

type Outbox interface {
	Insert(tx *sql.Tx, msg Message) error
	ListPending(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, messageID string) error
	// RecordFailure counts a failed publish attempt; the row stays pending.
	RecordFailure(ctx context.Context, messageID string) error
	// MarkFailed parks a message that exhausted its publish attempts.
	MarkFailed(ctx context.Context, messageID string) error
}
