package payout

import (
	"context"
	"log/slog"
)

// LogDisburser stands in for the external disbursement provider in
// environments without one. It accepts every payout and only logs.
type LogDisburser struct{}

func (LogDisburser) Disburse(_ context.Context, payoutID string, amountMinor int64, _ string) error {
	slog.Info("disbursement accepted", "payout_id", payoutID, "amount_minor", amountMinor)
	return nil
}
