package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"stockroom/m/internal/orders"
	"stockroom/m/internal/reports"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.orders.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": "Order created successfully",
	})
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req orders.UpdateInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.Update(r.Context(), id, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order updated successfully")
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order deleted successfully")
}

func (h *Handler) deleteAllOrders(w http.ResponseWriter, r *http.Request) {
	n, err := h.orders.DeleteAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Warn("deleted all rows", zap.String("entity", "orders"), zap.Int64("rows", n))
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": n,
		"message": "All orders deleted successfully",
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.Cancel(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order canceled successfully")
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.Refund(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order refunded successfully")
}

func (h *Handler) orderInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := reports.InvoicePDF(order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attachment(w, "application/pdf", fmt.Sprintf("invoice-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
