package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type giftItem struct {
	GiftID          string `json:"giftId"`
	PriceMinorUnits int64  `json:"priceMinorUnits"`
	Tier            string `json:"tier"`
}

// ListGiftsHandler handles GET /gifts
func (h *HandlerProvider) ListGiftsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]giftItem, 0, len(items))
	for _, item := range items {
		out = append(out, giftItem{
			GiftID:          item.GiftID,
			PriceMinorUnits: item.PriceMinor,
			Tier:            string(item.Tier),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"gifts": out})
}

type upsertGiftRequest struct {
	PriceMinorUnits int64 `json:"priceMinorUnits"`
}

// UpsertGiftHandler handles PUT /gifts/{giftId}. The tier is derived from the
// price, never taken from the caller.
func (h *HandlerProvider) UpsertGiftHandler(w http.ResponseWriter, r *http.Request) {
	giftID := chi.URLParam(r, "giftId")
	if giftID == "" {
		writeError(w, http.StatusBadRequest, "missing giftId")
		return
	}

	var req upsertGiftRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PriceMinorUnits <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	item, err := h.deps.Catalog.Upsert(r.Context(), giftID, req.PriceMinorUnits)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, giftItem{
		GiftID:          item.GiftID,
		PriceMinorUnits: item.PriceMinor,
		Tier:            string(item.Tier),
	})
}
