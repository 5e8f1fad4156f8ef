package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowlive/ledger/internal/repos/accounts"
	"github.com/glowlive/ledger/internal/repos/subscriptions"
	"github.com/glowlive/ledger/internal/services/billing"
)

const defaultPeriodSeconds = 30 * 24 * 60 * 60 // one month-ish billing period

type createSubscriptionRequest struct {
	SubscriberAccountID string `json:"subscriberAccountId"`
	CreatorAccountID    string `json:"creatorAccountId"`
	PriceMinorUnits     int64  `json:"priceMinorUnits"`
	PeriodSeconds       int64  `json:"periodSeconds,omitempty"`
}

type subscriptionResponse struct {
	SubscriptionID      string `json:"subscriptionId"`
	SubscriberAccountID string `json:"subscriberAccountId"`
	CreatorAccountID    string `json:"creatorAccountId"`
	PriceMinorUnits     int64  `json:"priceMinorUnits"`
	Status              string `json:"status"`
	NextChargeAt        string `json:"nextChargeAt"`
	CancelAtPeriodEnd   bool   `json:"cancelAtPeriodEnd"`
}

func toSubscriptionResponse(sub subscriptions.Subscription) subscriptionResponse {
	return subscriptionResponse{
		SubscriptionID:      sub.ID,
		SubscriberAccountID: sub.SubscriberAccountID,
		CreatorAccountID:    sub.CreatorAccountID,
		PriceMinorUnits:     sub.PriceMinor,
		Status:              string(sub.Status),
		NextChargeAt:        sub.NextChargeAt.UTC().Format(time.RFC3339Nano),
		CancelAtPeriodEnd:   sub.CancelAtPeriodEnd,
	}
}

// CreateSubscriptionHandler handles POST /subscriptions
func (h *HandlerProvider) CreateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	periodSeconds := req.PeriodSeconds
	if periodSeconds == 0 {
		periodSeconds = defaultPeriodSeconds
	}

	sub, err := h.deps.Billing.Create(r.Context(),
		req.SubscriberAccountID, req.CreatorAccountID,
		req.PriceMinorUnits, time.Duration(periodSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSubscription):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, accounts.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

type cancelSubscriptionRequest struct {
	CancelAtPeriodEnd bool `json:"cancelAtPeriodEnd"`
}

// CancelSubscriptionHandler handles POST /subscriptions/{subscriptionId}/cancel
func (h *HandlerProvider) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req cancelSubscriptionRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.deps.Billing.Cancel(r.Context(), chi.URLParam(r, "subscriptionId"), req.CancelAtPeriodEnd)
	if err != nil {
		if errors.Is(err, subscriptions.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}
