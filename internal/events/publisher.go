package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/glowlive/ledger/internal/repos/outbox"
)

const (
	pendingBatchSize = 50
	// maxPublishAttempts bounds retries for a message the broker keeps
	// rejecting. Parked messages stay queryable under status 'failed'.
	maxPublishAttempts = 10
)

// Publisher drains the transactional outbox into Kafka. Delivery is
// best-effort at-least-once: a row is only marked sent after the produce
// succeeds, and a failed produce leaves it pending for the next tick until
// its attempts run out.
type Publisher struct {
	box      outbox.Outbox
	producer Producer
	interval time.Duration
}

func NewPublisher(box outbox.Outbox, producer Producer, interval time.Duration) *Publisher {
	return &Publisher{
		box:      box,
		producer: producer,
		interval: interval,
	}
}

// Run polls until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishPending(ctx)
		}
	}
}

func (p *Publisher) publishPending(ctx context.Context) {
	msgs, err := p.box.ListPending(ctx, pendingBatchSize)
	if err != nil {
		slog.Error("list pending outbox messages", "error", err)
		return
	}

	for _, msg := range msgs {
		err := p.producer.Produce(ctx, msg.Key, msg.Payload)
		if err != nil {
			slog.Error("publish event", "message_id", msg.ID, "type", msg.EventType,
				"attempt", msg.Attempts+1, "error", err)

			if msg.Attempts+1 >= maxPublishAttempts {
				ferr := p.box.MarkFailed(ctx, msg.ID)
				if ferr != nil {
					slog.Error("park outbox message", "message_id", msg.ID, "error", ferr)
				}

				continue
			}

			ferr := p.box.RecordFailure(ctx, msg.ID)
			if ferr != nil {
				slog.Error("record outbox failure", "message_id", msg.ID, "error", ferr)
			}

			continue
		}

		err = p.box.MarkSent(ctx, msg.ID)
		if err != nil {
			// The message will be re-sent next tick; consumers dedup by id.
			slog.Error("mark outbox message sent", "message_id", msg.ID, "error", err)
		}
	}
}
