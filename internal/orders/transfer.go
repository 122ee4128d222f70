package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/catalog"
	"stockroom/m/internal/tabular"
)

var exportHeader = []string{
	"id", "customer_name", "customer_phone", "customer_address",
	"subtotal", "discount", "tax", "total", "status", "created_at", "items",
}

// transferItem is the JSON shape of an order line inside the items column.
type transferItem struct {
	ProductID   *int64  `json:"product_id,omitempty"`
	ProductName string  `json:"product_name"`
	Name        string  `json:"name,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	TotalPrice  float64 `json:"total_price"`
}

// Export renders one row per order with its lines as a JSON array.
func (s *Service) Export(ctx context.Context) (tabular.Table, error) {
	orders, err := s.List(ctx)
	if err != nil {
		return tabular.Table{}, err
	}

	t := tabular.NewTable(exportHeader...)
	t.Numeric("id", "subtotal", "discount", "tax", "total")
	for _, o := range orders {
		lines := make([]transferItem, len(o.Items))
		for i, it := range o.Items {
			lines[i] = transferItem{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Discount:    it.Discount,
				TotalPrice:  it.TotalPrice,
			}
		}
		encoded, err := json.Marshal(lines)
		if err != nil {
			return tabular.Table{}, fmt.Errorf("encode order %d items: %w", o.ID, err)
		}
		t.Append(
			tabular.FormatInt(o.ID), o.CustomerName, o.CustomerPhone, o.CustomerAddress,
			tabular.FormatFloat(o.Subtotal()), tabular.FormatFloat(o.Discount), tabular.FormatFloat(o.Tax),
			tabular.FormatFloat(o.Total), string(o.Status), o.CreatedAt, string(encoded),
		)
	}
	return t, nil
}

// Import inserts every row as a new order. Imported orders never move stock.
// The total is derived from the lines when they price to something, and taken
// from the total column otherwise.
func (s *Service) Import(ctx context.Context, rows []tabular.Row) (catalog.ImportResult, error) {
	var result catalog.ImportResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			if _, err := tx.ExecContext(ctx, `SAVEPOINT import_order`); err != nil {
				return err
			}
			if err := importOrder(ctx, tx, row); err != nil {
				result.Fail(i+2, err)
				if _, err := tx.ExecContext(ctx, `ROLLBACK TO import_order`); err != nil {
					return err
				}
			} else {
				result.Created++
			}
			if _, err := tx.ExecContext(ctx, `RELEASE import_order`); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.log.Info("orders imported", zap.Int("created", result.Created), zap.Int("errors", result.Errors))
	}
	return result, err
}

func importOrder(ctx context.Context, tx *sqlx.Tx, row tabular.Row) error {
	var lines []transferItem
	if raw := row.Get("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return domain.Invalid("items: %v", err)
		}
	}
	for i := range lines {
		if lines[i].ProductName == "" {
			lines[i].ProductName = lines[i].Name
		}
	}

	numbers := map[string]float64{}
	for _, key := range []string{"discount", "tax", "total"} {
		v, _, err := row.Float(key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		numbers[key] = v
	}

	status := domain.OrderStatus(strings.ToLower(row.Get("status")))
	if status == "" {
		status = domain.OrderStatusPending
	}
	if !status.Valid() {
		return domain.Invalid("unknown status %q", status)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(lineTotal(l.Quantity, decimal.NewFromFloat(l.UnitPrice)))
	}
	total := decimal.NewFromFloat(numbers["total"])
	if !subtotal.IsZero() {
		total = orderTotal(subtotal, numbers["discount"], numbers["tax"])
	}
	if len(lines) == 0 && total.IsZero() {
		return domain.Invalid("order has no items and no total")
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (customer_name, customer_phone, customer_address, total, tax, discount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))`,
		row.Get("customer_name", "customer"), row.Get("customer_phone", "phone"), row.Get("customer_address", "address"),
		total.InexactFloat64(), numbers["tax"], numbers["discount"], status, row.Get("created_at"))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, l := range lines {
		line := lineTotal(l.Quantity, decimal.NewFromFloat(l.UnitPrice))
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, discount, total_price) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.Discount, line.InexactFloat64())
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}
