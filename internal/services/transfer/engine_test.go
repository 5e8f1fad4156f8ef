package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowlive/ledger/internal/infra/pgtestutil"
	"github.com/glowlive/ledger/internal/repos/journal"
	pgjournal "github.com/glowlive/ledger/internal/repos/journal/postgres"
)

func TestEngine_GiftMovesFundsAndConserves(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 10_000)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	out, err := eng.Execute(context.Background(), Request{
		RequestID:     "r1",
		Kind:          KindGift,
		FromAccountID: "viewer",
		ToAccountID:   "creator",
		AmountMinor:   3000,
		GiftID:        "firework",
	})
	require.NoError(t, err)
	require.False(t, out.Duplicate)
	require.NotEmpty(t, out.CauseID)

	assert.EqualValues(t, 7000, pgtestutil.AccountBalance(t, db, "viewer"))
	assert.EqualValues(t, 3000, pgtestutil.AccountBalance(t, db, "creator"))

	entries, err := pgjournal.New(db).ListByCause(context.Background(), out.CauseID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var sum int64
	for _, e := range entries {
		sum += e.AmountMinor
	}
	assert.Zero(t, sum, "paired entries must sum to zero")
	assert.Equal(t, journal.KindGiftDebit, entries[0].Kind)
	assert.Equal(t, journal.KindGiftCredit, entries[1].Kind)
}

func TestEngine_ResubmitIsIdempotent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 10_000)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	req := Request{
		RequestID:     "r1",
		Kind:          KindGift,
		FromAccountID: "viewer",
		ToAccountID:   "creator",
		AmountMinor:   3000,
		GiftID:        "firework",
	}

	first, err := eng.Execute(context.Background(), req)
	require.NoError(t, err)

	second, err := eng.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.JournalEntryID, second.JournalEntryID)
	assert.Equal(t, first.CauseID, second.CauseID)

	assert.EqualValues(t, 7000, pgtestutil.AccountBalance(t, db, "viewer"))
	assert.EqualValues(t, 3000, pgtestutil.AccountBalance(t, db, "creator"))
}

func TestEngine_InsufficientBalanceWritesNothing(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 2000)
	pgtestutil.SeedAccount(t, db, "creator", 500)

	eng := New(db)

	_, err := eng.Execute(context.Background(), Request{
		RequestID:     "r-poor",
		Kind:          KindGift,
		FromAccountID: "viewer",
		ToAccountID:   "creator",
		AmountMinor:   3000,
		GiftID:        "firework",
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	assert.EqualValues(t, 2000, pgtestutil.AccountBalance(t, db, "viewer"))
	assert.EqualValues(t, 500, pgtestutil.AccountBalance(t, db, "creator"))

	entries, err := pgjournal.New(db).GetByRequestID(context.Background(), "r-poor")
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected transfer must leave no journal trace")
}

func TestEngine_PriceMismatchRejected(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 10_000)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	_, err := eng.Execute(context.Background(), Request{
		RequestID:     "r-stale",
		Kind:          KindGift,
		FromAccountID: "viewer",
		ToAccountID:   "creator",
		AmountMinor:   2500, // firework costs 3000
		GiftID:        "firework",
	})
	require.ErrorIs(t, err, ErrPriceMismatch)

	assert.EqualValues(t, 10_000, pgtestutil.AccountBalance(t, db, "viewer"))
}

func TestEngine_TopUpCreditsSingleAccount(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 0)

	eng := New(db)

	out, err := eng.Execute(context.Background(), Request{
		RequestID:   "r-topup",
		Kind:        KindTopUp,
		ToAccountID: "viewer",
		AmountMinor: 5000,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 5000, pgtestutil.AccountBalance(t, db, "viewer"))

	entries, err := pgjournal.New(db).ListByCause(context.Background(), out.CauseID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.KindTopUp, entries[0].Kind)
	assert.Empty(t, entries[0].CounterpartyAccountID)
}

func TestEngine_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "missing request id",
			req:  Request{Kind: KindTopUp, ToAccountID: "a", AmountMinor: 100},
			want: ErrInvalidRequest,
		},
		{
			name: "zero amount",
			req:  Request{RequestID: "r", Kind: KindTopUp, ToAccountID: "a"},
			want: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req:  Request{RequestID: "r", Kind: KindTopUp, ToAccountID: "a", AmountMinor: -5},
			want: ErrInvalidAmount,
		},
		{
			name: "gift without gift id",
			req:  Request{RequestID: "r", Kind: KindGift, FromAccountID: "a", ToAccountID: "b", AmountMinor: 100},
			want: ErrInvalidRequest,
		},
		{
			name: "self transfer",
			req:  Request{RequestID: "r", Kind: KindGift, FromAccountID: "a", ToAccountID: "a", AmountMinor: 100, GiftID: "rose"},
			want: ErrInvalidRequest,
		},
		{
			name: "unknown kind",
			req:  Request{RequestID: "r", Kind: "barter", ToAccountID: "a", AmountMinor: 100},
			want: ErrInvalidRequest,
		},
		{
			name: "top-up with source",
			req:  Request{RequestID: "r", Kind: KindTopUp, FromAccountID: "a", ToAccountID: "b", AmountMinor: 100},
			want: ErrInvalidRequest,
		},
		{
			name: "payout debit with destination",
			req:  Request{RequestID: "r", Kind: KindPayoutDebit, FromAccountID: "a", ToAccountID: "b", AmountMinor: 100},
			want: ErrInvalidRequest,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, validate(tc.req), tc.want)
		})
	}
}

func TestEngine_ConcurrentSpendsNeverOverspend(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	const (
		workers = 10
		price   = 1000 // balloon
	)

	pgtestutil.SeedAccount(t, db, "viewer", workers*price)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Execute(context.Background(), Request{
				RequestID:     "spend-" + string(rune('a'+i)),
				Kind:          KindGift,
				FromAccountID: "viewer",
				ToAccountID:   "creator",
				AmountMinor:   price,
				GiftID:        "balloon",
			})
		}(i)
	}
	wg.Wait()

	// Losers may exhaust their retry budget, but whatever was applied must
	// balance: no lost updates, no overdraft.
	var applied int64
	for _, err := range errs {
		switch {
		case err == nil:
			applied++
		default:
			require.ErrorIs(t, err, ErrConflict)
		}
	}

	viewerBal := pgtestutil.AccountBalance(t, db, "viewer")
	creatorBal := pgtestutil.AccountBalance(t, db, "creator")

	assert.EqualValues(t, workers*price-applied*price, viewerBal)
	assert.EqualValues(t, applied*price, creatorBal)
	assert.GreaterOrEqual(t, viewerBal, int64(0))
}

func TestEngine_CrossingTransfersSettle(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "alice", 10_000)
	pgtestutil.SeedAccount(t, db, "bob", 10_000)

	eng := New(db)

	// Opposite-direction transfers on the same account pair race each
	// other; deadlocks and version conflicts must both resolve by retry.
	const rounds = 8

	var wg sync.WaitGroup
	errs := make([]error, 2*rounds)

	for i := 0; i < rounds; i++ {
		wg.Add(2)

		go func(i int) {
			defer wg.Done()
			_, errs[2*i] = eng.Execute(context.Background(), Request{
				RequestID:     fmt.Sprintf("ab-%d", i),
				Kind:          KindGift,
				FromAccountID: "alice",
				ToAccountID:   "bob",
				AmountMinor:   500,
				GiftID:        "applause",
			})
		}(i)

		go func(i int) {
			defer wg.Done()
			_, errs[2*i+1] = eng.Execute(context.Background(), Request{
				RequestID:     fmt.Sprintf("ba-%d", i),
				Kind:          KindGift,
				FromAccountID: "bob",
				ToAccountID:   "alice",
				AmountMinor:   500,
				GiftID:        "applause",
			})
		}(i)
	}
	wg.Wait()

	var aliceToBob, bobToAlice int64
	for i, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrConflict, "unexpected error at %d", i)
			continue
		}

		if i%2 == 0 {
			aliceToBob++
		} else {
			bobToAlice++
		}
	}

	net := (bobToAlice - aliceToBob) * 500

	aliceBal := pgtestutil.AccountBalance(t, db, "alice")
	bobBal := pgtestutil.AccountBalance(t, db, "bob")

	assert.EqualValues(t, 10_000+net, aliceBal)
	assert.EqualValues(t, 10_000-net, bobBal)
	assert.EqualValues(t, 20_000, aliceBal+bobBal, "crossing transfers must conserve funds")
}

func TestEngine_ReplayedJournalReconstructsBalances(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 0)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	// A mixed history: external top-ups, gifts, a payout debit and its
	// compensation.
	steps := []Request{
		{RequestID: "h1", Kind: KindTopUp, ToAccountID: "viewer", AmountMinor: 5000},
		{RequestID: "h2", Kind: KindGift, FromAccountID: "viewer", ToAccountID: "creator", AmountMinor: 1000, GiftID: "balloon"},
		{RequestID: "h3", Kind: KindGift, FromAccountID: "viewer", ToAccountID: "creator", AmountMinor: 500, GiftID: "applause"},
		{RequestID: "h4", Kind: KindPayoutDebit, FromAccountID: "creator", AmountMinor: 1200},
		{RequestID: "h5", Kind: KindCompensation, ToAccountID: "creator", AmountMinor: 1200},
		{RequestID: "h6", Kind: KindTopUp, ToAccountID: "creator", AmountMinor: 300},
		{RequestID: "h7", Kind: KindSubscriptionCharge, FromAccountID: "viewer", ToAccountID: "creator", AmountMinor: 2500},
	}

	for _, req := range steps {
		_, err := eng.Execute(context.Background(), req)
		require.NoError(t, err, "request %s", req.RequestID)
	}

	// Replay the journal in commit order: no account may dip below zero at
	// any point, and the final running sums must equal the stored balances.
	rows, err := db.QueryContext(context.Background(), `
		SELECT account_id, amount_minor
		FROM journal_entries
		ORDER BY created_at ASC, amount_minor ASC, entry_id
	`)
	require.NoError(t, err)
	defer rows.Close()

	running := map[string]int64{}
	for rows.Next() {
		var accountID string
		var amount int64
		require.NoError(t, rows.Scan(&accountID, &amount))

		running[accountID] += amount
		require.GreaterOrEqual(t, running[accountID], int64(0),
			"account %s went negative mid-history", accountID)
	}
	require.NoError(t, rows.Err())

	require.Len(t, running, 2)
	for accountID, sum := range running {
		assert.Equal(t, pgtestutil.AccountBalance(t, db, accountID), sum,
			"replayed sum diverges from stored balance for %s", accountID)
	}
}

func TestEngine_ConcurrentSameRequestIDAppliesOnce(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	pgtestutil.SeedAccount(t, db, "viewer", 10_000)
	pgtestutil.SeedAccount(t, db, "creator", 0)

	eng := New(db)

	const workers = 6

	var wg sync.WaitGroup
	outs := make([]Outcome, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = eng.Execute(context.Background(), Request{
				RequestID:     "same-key",
				Kind:          KindGift,
				FromAccountID: "viewer",
				ToAccountID:   "creator",
				AmountMinor:   500,
				GiftID:        "applause",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
		require.Equal(t, outs[0].CauseID, outs[i].CauseID)
	}

	assert.EqualValues(t, 9500, pgtestutil.AccountBalance(t, db, "viewer"))
	assert.EqualValues(t, 500, pgtestutil.AccountBalance(t, db, "creator"))

	entries, err := pgjournal.New(db).GetByRequestID(context.Background(), "same-key")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "exactly one debit/credit pair")
}
