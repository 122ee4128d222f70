package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/backup"
	"stockroom/m/internal/catalog"
	"stockroom/m/internal/config"
	"stockroom/m/internal/orders"
	"stockroom/m/internal/reports"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	cfg config.Config
	log *zap.Logger
	now func() time.Time

	brands     *catalog.BrandStore
	categories *catalog.CategoryStore
	suppliers  *catalog.SupplierStore
	products   *catalog.ProductStore
	orders     *orders.Service
	backup     *backup.Manager
	reports    *reports.Service
}

// New constructs a Handler.
func New(db *sqlx.DB, cfg config.Config, log *zap.Logger) *Handler {
	h := &Handler{
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		brands:     catalog.NewBrands(db),
		categories: catalog.NewCategories(db),
		suppliers:  catalog.NewSuppliers(db),
		orders:     orders.NewService(db, log.Named("orders"), cfg.AllowNegativeStock),
		reports:    reports.NewService(db),
		backup: backup.NewManager(db, backup.Options{
			DatabasePath: cfg.DatabasePath,
			Dir:          cfg.BackupDir,
			Prefix:       cfg.BackupPrefix,
		}, log.Named("backup")),
	}
	h.products = catalog.NewProducts(db, h.brands, h.categories, h.suppliers)
	return h
}

// Products exposes the product store for startup seeding.
func (h *Handler) Products() *catalog.ProductStore {
	return h.products
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	if h.cfg.APIPrefix == "" {
		h.routes(r)
	} else {
		r.Route(h.cfg.APIPrefix, h.routes)
	}
	return r
}

func (h *Handler) routes(r chi.Router) {
	r.Get("/ping", h.health)
	r.Post("/auth/login", h.login)

	mountEntity[domain.Brand](r, h, "brands", h.brands)
	mountEntity[domain.Category](r, h, "categories", h.categories)
	mountEntity[domain.Supplier](r, h, "suppliers", h.suppliers)
	mountEntity[domain.Product](r, h, "products", h.products, func(r chi.Router) {
		r.Get("/low-stock", h.lowStock)
		r.Post("/{id}/stock", h.adjustStock)
		r.Get("/{id}/transactions", h.productTransactions)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/export", h.exportTable("orders", h.orders))
		r.Post("/import", h.importTable(h.orders))
		r.With(h.requireAdmin).Delete("/delete-all", h.deleteAllOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Post("/{id}/refund", h.refundOrder)
		r.Get("/{id}/invoice/pdf", h.orderInvoice)
	})

	r.Route("/backup", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/download", h.downloadBackup)
		r.Post("/restore", h.restoreBackup)
		r.Get("/export-excel", h.exportWorkbooks)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/inventory/pdf", h.inventoryReport)
		r.Get("/sales/pdf", h.salesReport)
		r.Get("/suppliers/pdf", h.suppliersReport)
	})

	r.Get("/dashboard/stats", h.dashboardStats)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
