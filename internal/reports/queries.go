// Package reports aggregates the catalog and orders for the dashboard and
// renders printable PDF reports and invoices.
package reports

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/m/domain"
)

type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Stats computes the dashboard counters. Sales only count pending orders;
// canceled and refunded orders gave their money back.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.GetContext(ctx, &stats, `SELECT
		(SELECT COUNT(*) FROM products) AS total_products,
		(SELECT COUNT(*) FROM brands) AS total_brands,
		(SELECT COUNT(*) FROM categories) AS total_categories,
		(SELECT COUNT(*) FROM suppliers) AS total_suppliers,
		(SELECT COUNT(*) FROM products WHERE COALESCE(quantity, 0) <= COALESCE(reorder_level, 0)) AS low_stock_items,
		(SELECT COALESCE(SUM(COALESCE(quantity, 0) * COALESCE(price, 0)), 0) FROM products) AS total_inventory_value,
		(SELECT COUNT(*) FROM orders) AS total_orders,
		(SELECT COALESCE(SUM(total), 0) FROM orders WHERE COALESCE(status, 'pending') = 'pending') AS total_sales`)
	if err != nil {
		return stats, fmt.Errorf("load dashboard stats: %w", err)
	}
	return stats, nil
}

type InventoryLine struct {
	Name         string  `db:"name"`
	SKU          string  `db:"sku"`
	BrandName    string  `db:"brand_name"`
	CategoryName string  `db:"category_name"`
	Quantity     int64   `db:"quantity"`
	Price        float64 `db:"price"`
	Value        float64 `db:"value"`
}

func (s *Service) Inventory(ctx context.Context) ([]InventoryLine, error) {
	var lines []InventoryLine
	err := s.db.SelectContext(ctx, &lines, `SELECT p.name, COALESCE(p.sku, '') AS sku,
		COALESCE(b.name, '') AS brand_name, COALESCE(c.name, '') AS category_name,
		COALESCE(p.quantity, 0) AS quantity, COALESCE(p.price, 0) AS price,
		COALESCE(p.quantity, 0) * COALESCE(p.price, 0) AS value
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.name COLLATE NOCASE, p.id`)
	if err != nil {
		return nil, fmt.Errorf("load inventory report: %w", err)
	}
	return lines, nil
}

type SalesLine struct {
	ID           int64              `db:"id"`
	CustomerName string             `db:"customer_name"`
	Status       domain.OrderStatus `db:"status"`
	CreatedAt    string             `db:"created_at"`
	Items        int64              `db:"items"`
	Total        float64            `db:"total"`
}

func (s *Service) Sales(ctx context.Context) ([]SalesLine, error) {
	var lines []SalesLine
	err := s.db.SelectContext(ctx, &lines, `SELECT o.id, COALESCE(o.customer_name, '') AS customer_name,
		COALESCE(o.status, 'pending') AS status, COALESCE(o.created_at, '') AS created_at,
		(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id) AS items,
		COALESCE(o.total, 0) AS total
		FROM orders o
		ORDER BY o.created_at DESC, o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("load sales report: %w", err)
	}
	return lines, nil
}

type SupplierLine struct {
	Name          string  `db:"name"`
	ContactPerson string  `db:"contact_person"`
	Phone         string  `db:"phone"`
	Products      int64   `db:"products"`
	StockValue    float64 `db:"stock_value"`
}

func (s *Service) Suppliers(ctx context.Context) ([]SupplierLine, error) {
	var lines []SupplierLine
	err := s.db.SelectContext(ctx, &lines, `SELECT s.name, COALESCE(s.contact_person, '') AS contact_person,
		COALESCE(s.phone, '') AS phone, COUNT(p.id) AS products,
		COALESCE(SUM(COALESCE(p.quantity, 0) * COALESCE(p.price, 0)), 0) AS stock_value
		FROM suppliers s
		LEFT JOIN products p ON p.supplier_id = s.id
		GROUP BY s.id
		ORDER BY s.name COLLATE NOCASE, s.id`)
	if err != nil {
		return nil, fmt.Errorf("load suppliers report: %w", err)
	}
	return lines, nil
}
