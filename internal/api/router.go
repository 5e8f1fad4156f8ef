package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowlive/ledger/internal/repos/accounts"
	"github.com/glowlive/ledger/internal/repos/giftcatalog"
	"github.com/glowlive/ledger/internal/repos/journal"
	"github.com/glowlive/ledger/internal/services/billing"
	"github.com/glowlive/ledger/internal/services/payout"
	"github.com/glowlive/ledger/internal/services/transfer"
)

// Deps collects everything the HTTP layer needs. Balances are only readable
// here; every mutation goes through the engine or a workflow.
type Deps struct {
	Engine   *transfer.Engine
	Payouts  *payout.Workflow
	Billing  *billing.Service
	Accounts accounts.Accounts
	Journal  journal.Journal
	Catalog  giftcatalog.Catalog
}

// NewRouter constructs the chi router with all API endpoints registered.
func NewRouter(deps Deps) http.Handler {
	h := NewHandler(deps)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/accounts", h.CreateAccountHandler)
	r.Get("/accounts/{accountId}/balance", h.GetBalanceHandler)
	r.Get("/accounts/{accountId}/statement", h.GetStatementHandler)

	r.Post("/transfers", h.ExecuteTransferHandler)
	r.Get("/gifts", h.ListGiftsHandler)
	r.Put("/gifts/{giftId}", h.UpsertGiftHandler)

	r.Post("/payouts", h.SubmitPayoutHandler)
	r.Get("/payouts", h.ListPendingPayoutsHandler)
	r.Get("/payouts/{payoutId}", h.GetPayoutHandler)
	r.Post("/payouts/{payoutId}/approve", h.ApprovePayoutHandler)
	r.Post("/payouts/{payoutId}/reject", h.RejectPayoutHandler)

	r.Post("/subscriptions", h.CreateSubscriptionHandler)
	r.Post("/subscriptions/{subscriptionId}/cancel", h.CancelSubscriptionHandler)

	return r
}
