package payout

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
	"github.com/glowlive/ledger/internal/repos/payouts"
	pgpayouts "github.com/glowlive/ledger/internal/repos/payouts/postgres"
	"github.com/glowlive/ledger/internal/services/transfer"
)

var ErrAmountOutOfBounds = errors.New("payout amount outside configured bounds")

// Disburser pushes approved funds to the creator's external payment method.
// It is an external collaborator; the workflow compensates when it fails.
// Implementations must de-duplicate by payoutID: a resumed approval calls
// Disburse again for the same payout.
type Disburser interface {
	Disburse(ctx context.Context, payoutID string, amountMinor int64, payeeDetails string) error
}

type Config struct {
	MinAmountMinor int64
	MaxAmountMinor int64
}

// Workflow drives a payout through pending -> processing -> paid|rejected.
// Funds are not held at submission; the balance is re-checked when the
// reviewer approves, and a disbursement failure after the debit is undone
// with a compensation credit.
type Workflow struct {
	db        *sql.DB
	payouts   payouts.Payouts
	accounts  accounts.Accounts
	box       outbox.Outbox
	engine    *transfer.Engine
	disburser Disburser
	cfg       Config
}

func New(db *sql.DB, engine *transfer.Engine, disburser Disburser, cfg Config) *Workflow {
	return &Workflow{
		db:        db,
		payouts:   pgpayouts.New(db),
		accounts:  pgaccounts.New(db),
		box:       pgoutbox.New(db),
		engine:    engine,
		disburser: disburser,
		cfg:       cfg,
	}
}

func (w *Workflow) Submit(ctx context.Context, accountID string, amountMinor int64, payeeDetails string) (payouts.Payout, error) {
	if amountMinor < w.cfg.MinAmountMinor || amountMinor > w.cfg.MaxAmountMinor {
		return payouts.Payout{}, ErrAmountOutOfBounds
	}

	acc, err := w.accounts.Get(ctx, accountID)
	if err != nil {
		return payouts.Payout{}, fmt.Errorf("load account: %w", err)
	}

	// Advisory check only; the funds stay spendable until approval and the
	// debit at approval time is what actually enforces the balance.
	if acc.BalanceMinor < amountMinor {
		return payouts.Payout{}, transfer.ErrInsufficientBalance
	}

	p := payouts.Payout{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		AmountMinor:  amountMinor,
		Status:       payouts.StatusPending,
		PayeeDetails: payeeDetails,
	}

	err = pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		err := w.payouts.Insert(tx, p)
		if err != nil {
			return err
		}

		return w.emitStatus(tx, p.ID, accountID, amountMinor, payouts.StatusPending, "")
	})
	if err != nil {
		return payouts.Payout{}, fmt.Errorf("submit payout: %w", err)
	}

	return w.payouts.Get(ctx, p.ID)
}

// Approve moves a pending payout to processing, debits the account through
// the transfer engine and runs the external disbursement. The conditional
// pending->processing update plus the deterministic debit request id make a
// concurrent double-approval debit the account exactly once. A payout
// stranded in processing by a crash is resumed: every step past the status
// change replays idempotently.
func (w *Workflow) Approve(ctx context.Context, payoutID string) (payouts.Payout, error) {
	p, err := w.payouts.Get(ctx, payoutID)
	if err != nil {
		return payouts.Payout{}, err
	}

	switch p.Status {
	case payouts.StatusPending:
		err = pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
			err := w.payouts.UpdateStatus(tx, payoutID, payouts.StatusPending, payouts.StatusProcessing, "", nil)
			if err != nil {
				return err
			}

			return w.emitStatus(tx, payoutID, p.AccountID, p.AmountMinor, payouts.StatusProcessing, "")
		})
		if err != nil {
			return payouts.Payout{}, fmt.Errorf("start processing: %w", err)
		}
	case payouts.StatusProcessing:
		// Resuming an interrupted approval; the status event was already
		// emitted when processing started.
	default:
		return payouts.Payout{}, payouts.ErrInvalidTransition
	}

	_, err = w.engine.Execute(ctx, transfer.Request{
		RequestID:     debitRequestID(payoutID),
		Kind:          transfer.KindPayoutDebit,
		FromAccountID: p.AccountID,
		AmountMinor:   p.AmountMinor,
	})
	if err != nil {
		// Balance dropped since submission, or the debit could not commit.
		// Either way no funds moved, so reject with the reason.
		rejErr := w.reject(ctx, payoutID, p, payouts.StatusProcessing, fmt.Sprintf("debit failed: %v", err))
		if rejErr != nil {
			return payouts.Payout{}, rejErr
		}

		return w.payouts.Get(ctx, payoutID)
	}

	err = w.disburser.Disburse(ctx, payoutID, p.AmountMinor, p.PayeeDetails)
	if err != nil {
		// The debit is already durable; credit it back rather than touch
		// the original journal entry.
		_, compErr := w.engine.Execute(ctx, transfer.Request{
			RequestID:   compensationRequestID(payoutID),
			Kind:        transfer.KindCompensation,
			ToAccountID: p.AccountID,
			AmountMinor: p.AmountMinor,
		})
		if compErr != nil {
			return payouts.Payout{}, fmt.Errorf("compensate failed disbursement: %w", compErr)
		}

		rejErr := w.reject(ctx, payoutID, p, payouts.StatusProcessing, fmt.Sprintf("disbursement failed: %v", err))
		if rejErr != nil {
			return payouts.Payout{}, rejErr
		}

		return w.payouts.Get(ctx, payoutID)
	}

	now := time.Now().UTC()

	err = pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		err := w.payouts.UpdateStatus(tx, payoutID, payouts.StatusProcessing, payouts.StatusPaid, "", &now)
		if err != nil {
			return err
		}

		return w.emitStatus(tx, payoutID, p.AccountID, p.AmountMinor, payouts.StatusPaid, "")
	})
	if err != nil {
		// A concurrent resume may have marked it paid already.
		if errors.Is(err, payouts.ErrInvalidTransition) {
			return w.payouts.Get(ctx, payoutID)
		}

		return payouts.Payout{}, fmt.Errorf("mark paid: %w", err)
	}

	return w.payouts.Get(ctx, payoutID)
}

func (w *Workflow) Reject(ctx context.Context, payoutID, reason string) (payouts.Payout, error) {
	p, err := w.payouts.Get(ctx, payoutID)
	if err != nil {
		return payouts.Payout{}, err
	}

	err = w.reject(ctx, payoutID, p, payouts.StatusPending, reason)
	if err != nil {
		return payouts.Payout{}, err
	}

	return w.payouts.Get(ctx, payoutID)
}

func (w *Workflow) Get(ctx context.Context, payoutID string) (payouts.Payout, error) {
	return w.payouts.Get(ctx, payoutID)
}

func (w *Workflow) ListPending(ctx context.Context, limit int) ([]payouts.Payout, error) {
	return w.payouts.ListByStatus(ctx, payouts.StatusPending, limit)
}

func (w *Workflow) reject(ctx context.Context, payoutID string, p payouts.Payout, from payouts.Status, reason string) error {
	now := time.Now().UTC()

	err := pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		err := w.payouts.UpdateStatus(tx, payoutID, from, payouts.StatusRejected, reason, &now)
		if err != nil {
			return err
		}

		return w.emitStatus(tx, payoutID, p.AccountID, p.AmountMinor, payouts.StatusRejected, reason)
	})
	if err != nil {
		return fmt.Errorf("reject payout: %w", err)
	}

	return nil
}

func (w *Workflow) emitStatus(tx *sql.Tx, payoutID, accountID string, amountMinor int64, status payouts.Status, reason string) error {
	msg, err := events.NewMessage(events.TypePayoutStatusChanged, accountID, events.PayoutStatusChanged{
		PayoutID:    payoutID,
		AccountID:   accountID,
		AmountMinor: amountMinor,
		Status:      string(status),
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return w.box.Insert(tx, msg)
}

func debitRequestID(payoutID string) string {
	return "payout-debit:" + payoutID
}

func compensationRequestID(payoutID string) string {
	return "payout-comp:" + payoutID
}
