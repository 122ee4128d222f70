package api

import (
	"net/http"
)

type stockRequest struct {
	QuantityChange int64  `json:"quantity_change"`
	Notes          string `json:"notes"`
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.LowStock(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.products.AdjustStock(r.Context(), id, req.QuantityChange, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Stock updated successfully",
		"product": product,
	})
}

func (h *Handler) productTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.products.Transactions(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}
