package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowlive/ledger/internal/repos/accounts"
	"github.com/glowlive/ledger/internal/repos/payouts"
	"github.com/glowlive/ledger/internal/services/payout"
	"github.com/glowlive/ledger/internal/services/transfer"
)

type submitPayoutRequest struct {
	AccountID        string `json:"accountId"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	PayeeDetails     string `json:"payeeDetails"`
}

type payoutResponse struct {
	PayoutID         string `json:"payoutId"`
	AccountID        string `json:"accountId"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	DecidedAt        string `json:"decidedAt,omitempty"`
}

func toPayoutResponse(p payouts.Payout) payoutResponse {
	resp := payoutResponse{
		PayoutID:         p.ID,
		AccountID:        p.AccountID,
		AmountMinorUnits: p.AmountMinor,
		Status:           string(p.Status),
		Reason:           p.Reason,
	}

	if p.DecidedAt != nil {
		resp.DecidedAt = p.DecidedAt.UTC().Format(time.RFC3339Nano)
	}

	return resp
}

// SubmitPayoutHandler handles POST /payouts
func (h *HandlerProvider) SubmitPayoutHandler(w http.ResponseWriter, r *http.Request) {
	var req submitPayoutRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.AccountID) == "" {
		writeError(w, http.StatusBadRequest, "accountId required")
		return
	}

	p, err := h.deps.Payouts.Submit(r.Context(), req.AccountID, req.AmountMinorUnits, req.PayeeDetails)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrAmountOutOfBounds):
			writeError(w, http.StatusBadRequest, "amount outside payout bounds")
		case errors.Is(err, transfer.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "insufficient balance")
		case errors.Is(err, accounts.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusCreated, toPayoutResponse(p))
}

const (
	defaultPayoutListLimit = 50
	maxPayoutListLimit     = 500
)

// ListPendingPayoutsHandler handles GET /payouts?limit=N, the reviewer's
// work queue of payouts awaiting a decision.
func (h *HandlerProvider) ListPendingPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPayoutListLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPayoutListLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		limit = parsed
	}

	pending, err := h.deps.Payouts.ListPending(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]payoutResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, toPayoutResponse(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{"payouts": out})
}

// GetPayoutHandler handles GET /payouts/{payoutId}
func (h *HandlerProvider) GetPayoutHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Payouts.Get(r.Context(), chi.URLParam(r, "payoutId"))
	if err != nil {
		if errors.Is(err, payouts.ErrPayoutNotFound) {
			writeError(w, http.StatusNotFound, "payout not found")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toPayoutResponse(p))
}

// ApprovePayoutHandler handles POST /payouts/{payoutId}/approve
func (h *HandlerProvider) ApprovePayoutHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Payouts.Approve(r.Context(), chi.URLParam(r, "payoutId"))
	if err != nil {
		switch {
		case errors.Is(err, payouts.ErrPayoutNotFound):
			writeError(w, http.StatusNotFound, "payout not found")
		case errors.Is(err, payouts.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "payout already decided")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, toPayoutResponse(p))
}

type rejectPayoutRequest struct {
	Reason string `json:"reason"`
}

// RejectPayoutHandler handles POST /payouts/{payoutId}/reject
func (h *HandlerProvider) RejectPayoutHandler(w http.ResponseWriter, r *http.Request) {
	var req rejectPayoutRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.deps.Payouts.Reject(r.Context(), chi.URLParam(r, "payoutId"), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, payouts.ErrPayoutNotFound):
			writeError(w, http.StatusNotFound, "payout not found")
		case errors.Is(err, payouts.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "payout is not pending")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, toPayoutResponse(p))
}
