// Package orders places orders, moves stock for them and restores it on
// cancellation or refund.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/catalog"
)

const orderSelect = `SELECT id, COALESCE(customer_name, '') AS customer_name,
	COALESCE(customer_phone, '') AS customer_phone, COALESCE(customer_address, '') AS customer_address,
	COALESCE(total, 0) AS total, COALESCE(tax, 0) AS tax, COALESCE(discount, 0) AS discount,
	COALESCE(status, 'pending') AS status, COALESCE(created_at, '') AS created_at
FROM orders`

const itemSelect = `SELECT id, order_id, product_id, COALESCE(product_name, '') AS product_name, quantity,
	unit_price, COALESCE(discount, 0) AS discount, total_price
FROM order_items`

type ItemInput struct {
	ProductID   *int64   `json:"product_id"`
	ProductName string   `json:"product_name"`
	Name        string   `json:"name"` // alias of product_name
	Quantity    int64    `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Discount    *float64 `json:"discount"`
}

func (in ItemInput) name() string {
	if name := strings.TrimSpace(in.ProductName); name != "" {
		return name
	}
	return strings.TrimSpace(in.Name)
}

type CreateInput struct {
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	Items           []ItemInput `json:"items"`
	Tax             float64     `json:"tax"`
	Discount        float64     `json:"discount"`
}

// UpdateInput overwrites the editable order fields. Items are fixed once an
// order is placed.
type UpdateInput struct {
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerAddress string  `json:"customer_address"`
	Tax             float64 `json:"tax"`
	Discount        float64 `json:"discount"`
}

// Service implements the order lifecycle against the shared database.
type Service struct {
	db                 *sqlx.DB
	log                *zap.Logger
	allowNegativeStock bool
}

func NewService(db *sqlx.DB, log *zap.Logger, allowNegativeStock bool) *Service {
	return &Service{db: db, log: log, allowNegativeStock: allowNegativeStock}
}

// Create prices and stores an order, taking stock for every line that
// references a product. The whole order is one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	if len(in.Items) == 0 {
		return 0, domain.Invalid("order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return 0, domain.Invalid("item %d: quantity must be positive", i+1)
		}
		if item.ProductID == nil && item.name() == "" {
			return 0, domain.Invalid("item %d: product_id or product_name is required", i+1)
		}
	}

	var orderID int64
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (customer_name, customer_phone, customer_address, total, tax, discount, status) VALUES (?, ?, ?, 0, ?, ?, ?)`,
			in.CustomerName, in.CustomerPhone, in.CustomerAddress, in.Tax, in.Discount, domain.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if orderID, err = res.LastInsertId(); err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, item := range in.Items {
			line, err := s.addItem(ctx, tx, orderID, item)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(line)
		}

		total := orderTotal(subtotal, in.Discount, in.Tax)
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET total = ? WHERE id = ?`, total.InexactFloat64(), orderID); err != nil {
			return fmt.Errorf("update order total: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("order created", zap.Int64("order_id", orderID), zap.Int("items", len(in.Items)))
	return orderID, nil
}

func (s *Service) addItem(ctx context.Context, tx *sqlx.Tx, orderID int64, item ItemInput) (decimal.Decimal, error) {
	var product *productSnapshot
	name := item.name()

	if item.ProductID != nil {
		var snap productSnapshot
		err := tx.GetContext(ctx, &snap, `SELECT name, COALESCE(price, 0) AS price, COALESCE(discount, 0) AS discount,
			COALESCE(quantity, 0) AS quantity FROM products WHERE id = ?`, *item.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.Invalid("product %d not found", *item.ProductID)
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("load product %d: %w", *item.ProductID, err)
		}
		if !s.allowNegativeStock && item.Quantity > snap.Quantity {
			return decimal.Zero, fmt.Errorf("%w: %s has %d in stock, %d requested",
				domain.ErrInsufficientStock, snap.Name, snap.Quantity, item.Quantity)
		}
		product = &snap
		name = snap.Name
	}

	unit, discount := priceItem(item, product)
	line := lineTotal(item.Quantity, unit)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, discount, total_price) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		orderID, item.ProductID, name, item.Quantity, unit.InexactFloat64(), discount.InexactFloat64(), line.InexactFloat64())
	if err != nil {
		return decimal.Zero, fmt.Errorf("insert order item: %w", err)
	}

	if product != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET quantity = COALESCE(quantity, 0) - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			item.Quantity, *item.ProductID); err != nil {
			return decimal.Zero, fmt.Errorf("take stock of product %d: %w", *item.ProductID, err)
		}
		notes := fmt.Sprintf("Order #%d", orderID)
		if err := catalog.RecordTransaction(ctx, tx, *item.ProductID, domain.TransactionSale, -item.Quantity, notes); err != nil {
			return decimal.Zero, err
		}
	}
	return line, nil
}

// Cancel marks an order canceled, returning its stock if it was pending.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, domain.OrderStatusCanceled, domain.TransactionCancel)
}

// Refund marks an order refunded, returning its stock if it was pending.
func (s *Service) Refund(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, domain.OrderStatusRefunded, domain.TransactionRefund)
}

// setStatus moves an order out of its current status. Stock comes back only
// when the order leaves pending, so it is restored at most once.
func (s *Service) setStatus(ctx context.Context, id int64, status domain.OrderStatus, kind string) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var current domain.OrderStatus
		err := tx.GetContext(ctx, &current, `SELECT COALESCE(status, 'pending') FROM orders WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("Order")
		}
		if err != nil {
			return fmt.Errorf("load order %d: %w", id, err)
		}
		if current == status {
			return fmt.Errorf("order is already %s: %w", status, domain.ErrInvalidStatus)
		}

		if current == domain.OrderStatusPending {
			s.restoreStock(ctx, tx, id, kind)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id); err != nil {
			return fmt.Errorf("update order %d status: %w", id, err)
		}
		s.log.Info("order status changed", zap.Int64("order_id", id),
			zap.String("from", string(current)), zap.String("to", string(status)))
		return nil
	})
}

// restoreStock puts item quantities back. Failures are logged per item and do
// not fail the status change.
func (s *Service) restoreStock(ctx context.Context, tx *sqlx.Tx, orderID int64, kind string) {
	var items []domain.OrderItem
	if err := tx.SelectContext(ctx, &items, itemSelect+` WHERE order_id = ? AND product_id IS NOT NULL`, orderID); err != nil {
		s.log.Warn("load order items for restock", zap.Int64("order_id", orderID), zap.Error(err))
		return
	}

	notes := fmt.Sprintf("Order #%d %s", orderID, kind)
	for _, item := range items {
		productID := *item.ProductID
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET quantity = COALESCE(quantity, 0) + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			item.Quantity, productID)
		if err != nil {
			s.log.Warn("restock product", zap.Int64("order_id", orderID), zap.Int64("product_id", productID), zap.Error(err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			s.log.Warn("restock skipped, product no longer exists",
				zap.Int64("order_id", orderID), zap.Int64("product_id", productID))
			continue
		}
		if err := catalog.RecordTransaction(ctx, tx, productID, kind, item.Quantity, notes); err != nil {
			s.log.Warn("record restock transaction", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}
}

// Update overwrites the customer fields, tax and discount and recomputes the
// total from the stored line totals.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT 1 FROM orders WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("Order")
		}
		if err != nil {
			return fmt.Errorf("load order %d: %w", id, err)
		}

		var lines []float64
		if err := tx.SelectContext(ctx, &lines, `SELECT total_price FROM order_items WHERE order_id = ?`, id); err != nil {
			return fmt.Errorf("load order %d items: %w", id, err)
		}
		subtotal := decimal.Zero
		for _, l := range lines {
			subtotal = subtotal.Add(decimal.NewFromFloat(l))
		}
		total := orderTotal(subtotal, in.Discount, in.Tax)

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET customer_name = ?, customer_phone = ?, customer_address = ?, tax = ?, discount = ?, total = ? WHERE id = ?`,
			in.CustomerName, in.CustomerPhone, in.CustomerAddress, in.Tax, in.Discount, total.InexactFloat64(), id)
		if err != nil {
			return fmt.Errorf("update order %d: %w", id, err)
		}
		return nil
	})
}

// Delete removes an order and its items. Stock is never touched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
			return fmt.Errorf("delete order %d items: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete order %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("Order")
		}
		return nil
	})
}

// DeleteAll removes every order and item and reports the number of orders.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items`); err != nil {
			return fmt.Errorf("delete all order items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders`)
		if err != nil {
			return fmt.Errorf("delete all orders: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

// List returns every order with its items, newest first.
func (s *Service) List(ctx context.Context) ([]domain.OrderDetail, error) {
	var orders []domain.Order
	if err := s.db.SelectContext(ctx, &orders, orderSelect+` ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var items []domain.OrderItem
	if err := s.db.SelectContext(ctx, &items, itemSelect+` ORDER BY order_id, id`); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	itemsByOrder := make(map[int64][]domain.OrderItem)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	details := make([]domain.OrderDetail, len(orders))
	for i, o := range orders {
		details[i] = domain.OrderDetail{Order: o, Items: itemsByOrder[o.ID]}
		if details[i].Items == nil {
			details[i].Items = []domain.OrderItem{}
		}
	}
	return details, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.OrderDetail, error) {
	var detail domain.OrderDetail
	err := s.db.GetContext(ctx, &detail.Order, orderSelect+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return detail, domain.NotFound("Order")
	}
	if err != nil {
		return detail, fmt.Errorf("get order %d: %w", id, err)
	}

	detail.Items = []domain.OrderItem{}
	if err := s.db.SelectContext(ctx, &detail.Items, itemSelect+` WHERE order_id = ? ORDER BY id`, id); err != nil {
		return detail, fmt.Errorf("get order %d items: %w", id, err)
	}
	return detail, nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
