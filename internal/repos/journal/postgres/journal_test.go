package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/glowlive/ledger/internal/infra/pgtestutil"
	"github.com/glowlive/ledger/internal/repos/journal"
)

func insertEntry(t *testing.T, db *sql.DB, repo *journalRepo, e journal.Entry) error {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = repo.Insert(tx, e)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func TestJournal_InsertAndDuplicate(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "a", 0)
	pgtestutil.SeedAccount(t, db, "b", 0)

	repo := New(db)

	debit := journal.Entry{
		EntryID:               "e-1",
		RequestID:             "r-1",
		Kind:                  journal.KindGiftDebit,
		AccountID:             "a",
		AmountMinor:           -3000,
		CounterpartyAccountID: "b",
		CauseID:               "c-1",
	}

	credit := journal.Entry{
		EntryID:               "e-2",
		RequestID:             "r-1",
		Kind:                  journal.KindGiftCredit,
		AccountID:             "b",
		AmountMinor:           3000,
		CounterpartyAccountID: "a",
		CauseID:               "c-1",
	}

	if err := insertEntry(t, db, repo, debit); err != nil {
		t.Fatalf("insert debit: %v", err)
	}

	// Different account, same request: allowed (the credit side).
	if err := insertEntry(t, db, repo, credit); err != nil {
		t.Fatalf("insert credit: %v", err)
	}

	// Same (request, account) again: the idempotency backstop.
	dup := debit
	dup.EntryID = "e-3"

	err := insertEntry(t, db, repo, dup)
	if !errors.Is(err, journal.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	byRequest, err := repo.GetByRequestID(ctx, "r-1")
	if err != nil {
		t.Fatalf("get by request: %v", err)
	}

	if len(byRequest) != 2 {
		t.Fatalf("want 2 entries for request, got %d", len(byRequest))
	}

	// Ordered amount ascending: debit first.
	if byRequest[0].AmountMinor != -3000 || byRequest[1].AmountMinor != 3000 {
		t.Fatalf("unexpected ordering: %+v", byRequest)
	}
}

func TestJournal_ConservationByCause(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "a", 0)
	pgtestutil.SeedAccount(t, db, "b", 0)

	repo := New(db)

	pairs := []journal.Entry{
		{EntryID: "d1", RequestID: "r1", Kind: journal.KindGiftDebit, AccountID: "a", AmountMinor: -500, CounterpartyAccountID: "b", CauseID: "cause"},
		{EntryID: "c1", RequestID: "r1", Kind: journal.KindGiftCredit, AccountID: "b", AmountMinor: 500, CounterpartyAccountID: "a", CauseID: "cause"},
	}

	for _, e := range pairs {
		if err := insertEntry(t, db, repo, e); err != nil {
			t.Fatalf("insert %s: %v", e.EntryID, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := repo.ListByCause(ctx, "cause")
	if err != nil {
		t.Fatalf("list by cause: %v", err)
	}

	var sum int64
	for _, e := range entries {
		sum += e.AmountMinor
	}

	if sum != 0 {
		t.Fatalf("cause entries do not conserve funds: sum %d", sum)
	}
}

func TestJournal_ListByAccount_NewestFirst(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "a", 0)

	repo := New(db)

	for i, id := range []string{"t1", "t2", "t3"} {
		e := journal.Entry{
			EntryID:     id,
			RequestID:   id,
			Kind:        journal.KindTopUp,
			AccountID:   "a",
			AmountMinor: int64(100 * (i + 1)),
			CauseID:     "cause-" + id,
		}
		if err := insertEntry(t, db, repo, e); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}

		// created_at has microsecond resolution; keep inserts apart.
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := repo.ListByAccount(ctx, "a", 2)
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("limit not applied: got %d entries", len(entries))
	}

	if entries[0].EntryID != "t3" {
		t.Fatalf("expected newest entry first, got %s", entries[0].EntryID)
	}
}
