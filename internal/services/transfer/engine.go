package transfer

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
	"github.com/glowlive/ledger/internal/repos/giftcatalog"
	pgcatalog "github.com/glowlive/ledger/internal/repos/giftcatalog/postgres"
	"github.com/glowlive/ledger/internal/repos/journal"
	pgjournal "github.com/glowlive/ledger/internal/repos/journal/postgres"
	"github.com/glowlive/ledger/internal/repos/outbox"
	pgoutbox "github.com/glowlive/ledger/internal/repos/outbox/postgres"
)

// How many times a version conflict is retried before giving up with
// ErrConflict.
const maxAttempts = 5

// Engine executes atomic value movements. It is the only writer of account
// balances and journal entries; the payout workflow and billing reconciler
// route every balance change through it.
type Engine struct {
	db       *sql.DB
	accounts accounts.Accounts
	journal  journal.Journal
	catalog  giftcatalog.Catalog
	box      outbox.Outbox
}

func New(db *sql.DB) *Engine {
	return &Engine{
		db:       db,
		accounts: pgaccounts.New(db),
		journal:  pgjournal.New(db),
		catalog:  pgcatalog.New(db),
		box:      pgoutbox.New(db),
	}
}

// Execute runs the full transfer flow:
//
//  1. Validate shape, and for gifts the catalog price.
//  2. De-duplicate against the journal by request id.
//  3. In one DB transaction: CAS both account balances, insert the journal
//     entries and the completion event. A version conflict aborts and
//     retries the whole transaction.
//
// Either all effects commit or none do; local rejections write nothing.
func (e *Engine) Execute(ctx context.Context, req Request) (Outcome, error) {
	err := validate(req)
	if err != nil {
		return Outcome{}, err
	}

	if req.Kind == KindGift {
		item, err := e.catalog.Get(ctx, req.GiftID)
		if err != nil {
			return Outcome{}, fmt.Errorf("look up gift %q: %w", req.GiftID, err)
		}

		// The catalog price at execution time is authoritative; a stale
		// client price is rejected, never silently corrected.
		if item.PriceMinor != req.AmountMinor {
			return Outcome{}, ErrPriceMismatch
		}
	}

	existing, err := e.journal.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return Outcome{}, fmt.Errorf("dedup check: %w", err)
	}

	if len(existing) > 0 {
		return duplicateOutcome(existing), nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := e.attempt(ctx, req)
		if err == nil {
			return out, nil
		}

		// Crossing transfers (A->B racing B->A) can deadlock inside
		// postgres; the aborted transaction applied nothing, so it retries
		// the same as a version conflict.
		if errors.Is(err, accounts.ErrVersionConflict) || pgutils.IsRetryableTxError(err) {
			continue
		}

		if errors.Is(err, journal.ErrDuplicateRequest) {
			// Lost a race against an identical request; return its outcome.
			entries, gerr := e.journal.GetByRequestID(ctx, req.RequestID)
			if gerr != nil {
				return Outcome{}, fmt.Errorf("fetch duplicate outcome: %w", gerr)
			}

			if len(entries) == 0 {
				return Outcome{}, fmt.Errorf("duplicate request %q has no journal entries", req.RequestID)
			}

			return duplicateOutcome(entries), nil
		}

		return Outcome{}, err
	}

	return Outcome{}, ErrConflict
}

// attempt applies one optimistic pass inside a single DB transaction.
func (e *Engine) attempt(ctx context.Context, req Request) (Outcome, error) {
	var out Outcome

	err := pgutils.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		causeID := uuid.NewString()
		debitKind, creditKind := entryKinds(req.Kind)

		var entries []journal.Entry

		if req.FromAccountID != "" {
			acc, err := e.accounts.GetTx(tx, req.FromAccountID)
			if err != nil {
				return fmt.Errorf("load source account: %w", err)
			}

			if acc.BalanceMinor < req.AmountMinor {
				return ErrInsufficientBalance
			}

			err = e.accounts.UpdateBalance(tx, acc.ID, acc.BalanceMinor-req.AmountMinor, acc.Version)
			if err != nil {
				return err
			}

			entries = append(entries, journal.Entry{
				EntryID:               uuid.NewString(),
				RequestID:             req.RequestID,
				Kind:                  debitKind,
				AccountID:             acc.ID,
				AmountMinor:           -req.AmountMinor,
				CounterpartyAccountID: req.ToAccountID,
				CauseID:               causeID,
			})
		}

		if req.ToAccountID != "" {
			acc, err := e.accounts.GetTx(tx, req.ToAccountID)
			if err != nil {
				return fmt.Errorf("load destination account: %w", err)
			}

			err = e.accounts.UpdateBalance(tx, acc.ID, acc.BalanceMinor+req.AmountMinor, acc.Version)
			if err != nil {
				return err
			}

			entries = append(entries, journal.Entry{
				EntryID:               uuid.NewString(),
				RequestID:             req.RequestID,
				Kind:                  creditKind,
				AccountID:             acc.ID,
				AmountMinor:           req.AmountMinor,
				CounterpartyAccountID: req.FromAccountID,
				CauseID:               causeID,
			})
		}

		for _, entry := range entries {
			err := e.journal.Insert(tx, entry)
			if err != nil {
				return err
			}
		}

		out = Outcome{JournalEntryID: entries[0].EntryID, CauseID: causeID}

		msg, err := events.NewMessage(events.TypeTransferCompleted, entries[0].AccountID, events.TransferCompleted{
			EntryID:       entries[0].EntryID,
			CauseID:       causeID,
			RequestID:     req.RequestID,
			Kind:          string(req.Kind),
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			AmountMinor:   req.AmountMinor,
			OccurredAt:    time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		return e.box.Insert(tx, msg)
	})
	if err != nil {
		return Outcome{}, err
	}

	return out, nil
}

func validate(req Request) error {
	if req.RequestID == "" {
		return fmt.Errorf("%w: missing request id", ErrInvalidRequest)
	}

	if req.AmountMinor <= 0 {
		return ErrInvalidAmount
	}

	switch req.Kind {
	case KindTopUp:
		if req.ToAccountID == "" || req.FromAccountID != "" {
			return fmt.Errorf("%w: top-up credits exactly one account", ErrInvalidRequest)
		}
	case KindGift:
		if req.FromAccountID == "" || req.ToAccountID == "" {
			return fmt.Errorf("%w: gift needs source and destination", ErrInvalidRequest)
		}

		if req.GiftID == "" {
			return fmt.Errorf("%w: gift needs a gift id", ErrInvalidRequest)
		}
	case KindSubscriptionCharge:
		if req.FromAccountID == "" || req.ToAccountID == "" {
			return fmt.Errorf("%w: subscription charge needs subscriber and creator", ErrInvalidRequest)
		}
	case KindPayoutDebit:
		if req.FromAccountID == "" || req.ToAccountID != "" {
			return fmt.Errorf("%w: payout debit debits exactly one account", ErrInvalidRequest)
		}
	case KindCompensation:
		if req.ToAccountID == "" || req.FromAccountID != "" {
			return fmt.Errorf("%w: compensation credits exactly one account", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}

	if req.FromAccountID != "" && req.FromAccountID == req.ToAccountID {
		return fmt.Errorf("%w: source and destination are the same account", ErrInvalidRequest)
	}

	return nil
}

func entryKinds(kind Kind) (debit, credit journal.Kind) {
	switch kind {
	case KindGift:
		return journal.KindGiftDebit, journal.KindGiftCredit
	case KindSubscriptionCharge:
		return journal.KindSubscriptionCharge, journal.KindSubscriptionCharge
	case KindPayoutDebit:
		return journal.KindPayoutDebit, ""
	case KindCompensation:
		return "", journal.KindCompensation
	default: // top-up
		return "", journal.KindTopUp
	}
}

// duplicateOutcome reconstructs the original outcome from journaled entries.
// Entries are ordered amount ascending, so the debit side comes first when
// the transfer had one.
func duplicateOutcome(entries []journal.Entry) Outcome {
	return Outcome{
		JournalEntryID: entries[0].EntryID,
		CauseID:        entries[0].CauseID,
		Duplicate:      true,
	}
}
