package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/glowlive/ledger/internal/repos/accounts"
	"github.com/glowlive/ledger/internal/repos/giftcatalog"
	"github.com/glowlive/ledger/internal/services/transfer"
)

type transferRequest struct {
	RequestID        string `json:"requestId"`
	Kind             string `json:"kind"`
	FromAccountID    string `json:"fromAccountId,omitempty"`
	ToAccountID      string `json:"toAccountId,omitempty"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	GiftID           string `json:"giftId,omitempty"`
}

type transferResponse struct {
	Status         string `json:"status"`
	JournalEntryID string `json:"journalEntryId,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// parseTransferKind accepts only caller-facing kinds. Payout debits,
// compensations and subscription charges are owned by their workflows and
// cannot be injected over HTTP.
func parseTransferKind(s string) (transfer.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-up", "topup":
		return transfer.KindTopUp, nil
	case "gift", "gift-debit":
		return transfer.KindGift, nil
	default:
		return "", fmt.Errorf("invalid kind")
	}
}

// ExecuteTransferHandler handles POST /transfers
func (h *HandlerProvider) ExecuteTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "requestId required")
		return
	}

	kind, err := parseTransferKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	out, err := h.deps.Engine.Execute(r.Context(), transfer.Request{
		RequestID:     req.RequestID,
		Kind:          kind,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		AmountMinor:   req.AmountMinorUnits,
		GiftID:        req.GiftID,
	})
	if err != nil {
		status, reason := mapTransferError(err)
		writeJSON(w, status, transferResponse{Status: "rejected", Reason: reason})

		return
	}

	// A replayed requestId returns the original outcome shaped exactly like
	// the first response.
	writeJSON(w, http.StatusOK, transferResponse{
		Status:         "completed",
		JournalEntryID: out.JournalEntryID,
	})
}

func mapTransferError(err error) (int, string) {
	switch {
	case errors.Is(err, transfer.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, transfer.ErrPriceMismatch):
		return http.StatusConflict, "price_mismatch"
	case errors.Is(err, giftcatalog.ErrGiftNotFound):
		return http.StatusNotFound, "gift_not_found"
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, transfer.ErrInvalidAmount), errors.Is(err, transfer.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, transfer.ErrConflict):
		// Nothing was applied; the caller may retry with the same requestId.
		return http.StatusServiceUnavailable, "conflict_retry"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
