package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockroom/m/internal/reports"
)

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) inventoryReport(w http.ResponseWriter, r *http.Request) {
	h.renderReport(w, r, "inventory", func(ctx context.Context, at time.Time) ([]byte, error) {
		lines, err := h.reports.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		return reports.InventoryPDF(lines, at)
	})
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	h.renderReport(w, r, "sales", func(ctx context.Context, at time.Time) ([]byte, error) {
		lines, err := h.reports.Sales(ctx)
		if err != nil {
			return nil, err
		}
		return reports.SalesPDF(lines, at)
	})
}

func (h *Handler) suppliersReport(w http.ResponseWriter, r *http.Request) {
	h.renderReport(w, r, "suppliers", func(ctx context.Context, at time.Time) ([]byte, error) {
		lines, err := h.reports.Suppliers(ctx)
		if err != nil {
			return nil, err
		}
		return reports.SuppliersPDF(lines, at)
	})
}

func (h *Handler) renderReport(w http.ResponseWriter, r *http.Request, name string, render func(context.Context, time.Time) ([]byte, error)) {
	now := h.now()
	data, err := render(r.Context(), now)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attachment(w, "application/pdf", fmt.Sprintf("%s-report-%s.pdf", name, now.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
