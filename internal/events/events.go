package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowlive/ledger/internal/repos/outbox"
)

const (
	TypeTransferCompleted         = "TransferCompleted"
	TypePayoutStatusChanged       = "PayoutStatusChanged"
	TypeSubscriptionStatusChanged = "SubscriptionStatusChanged"
)

// TransferCompleted drives gift animations and balance refreshes in the chat
// overlay. Consumers de-duplicate by EntryID; delivery is at-least-once.
type TransferCompleted struct {
	EntryID       string    `json:"entryId"`
	CauseID       string    `json:"causeId"`
	RequestID     string    `json:"requestId"`
	Kind          string    `json:"kind"`
	FromAccountID string    `json:"fromAccountId,omitempty"`
	ToAccountID   string    `json:"toAccountId,omitempty"`
	AmountMinor   int64     `json:"amountMinorUnits"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type PayoutStatusChanged struct {
	PayoutID    string    `json:"payoutId"`
	AccountID   string    `json:"accountId"`
	AmountMinor int64     `json:"amountMinorUnits"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type SubscriptionStatusChanged struct {
	SubscriptionID      string    `json:"subscriptionId"`
	SubscriberAccountID string    `json:"subscriberAccountId"`
	CreatorAccountID    string    `json:"creatorAccountId"`
	Status              string    `json:"status"`
	NextChargeAt        time.Time `json:"nextChargeAt"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// NewMessage wraps an event payload in a pending outbox message. Key selects
// the Kafka partition, so events for one account/payout/subscription stay
// ordered.
func NewMessage(eventType, key string, payload any) (outbox.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Message{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return outbox.Message{
		ID:        uuid.NewString(),
		EventType: eventType,
		Key:       key,
		Payload:   body,
		Status:    outbox.StatusPending,
	}, nil
}
