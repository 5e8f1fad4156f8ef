package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowlive/ledger/internal/repos/accounts"
)

const (
	defaultStatementLimit = 50
	maxStatementLimit     = 500
)

type createAccountRequest struct {
	AccountID string `json:"accountId"`
}

// CreateAccountHandler handles POST /accounts
func (h *HandlerProvider) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.AccountID) == "" {
		writeError(w, http.StatusBadRequest, "accountId required")
		return
	}

	acc, err := h.deps.Accounts.Create(r.Context(), req.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountExists) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"accountId":         acc.ID,
		"balanceMinorUnits": acc.BalanceMinor,
	})
}

// GetBalanceHandler handles GET /accounts/{accountId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing accountId")
		return
	}

	acc, err := h.deps.Accounts.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":         acc.ID,
		"balanceMinorUnits": acc.BalanceMinor,
		"updatedAt":         acc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

type statementEntry struct {
	EntryID               string `json:"entryId"`
	Kind                  string `json:"kind"`
	AmountMinorUnits      int64  `json:"amountMinorUnits"`
	CounterpartyAccountID string `json:"counterpartyAccountId,omitempty"`
	CauseID               string `json:"causeId"`
	CreatedAt             string `json:"createdAt"`
}

// GetStatementHandler handles GET /accounts/{accountId}/statement?limit=N
func (h *HandlerProvider) GetStatementHandler(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing accountId")
		return
	}

	limit := defaultStatementLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxStatementLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		limit = parsed
	}

	_, err := h.deps.Accounts.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries, err := h.deps.Journal.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]statementEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, statementEntry{
			EntryID:               e.EntryID,
			Kind:                  string(e.Kind),
			AmountMinorUnits:      e.AmountMinor,
			CounterpartyAccountID: e.CounterpartyAccountID,
			CauseID:               e.CauseID,
			CreatedAt:             e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": accountID,
		"entries":   out,
	})
}
