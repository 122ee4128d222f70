package reports

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/m/domain"
	"stockroom/m/internal/testdb"
)

func TestStatsAndReports(t *testing.T) {
	ctx := context.Background()
	db, _ := testdb.New(t)
	db.MustExec(`INSERT INTO brands (name) VALUES ('Acme')`)
	db.MustExec(`INSERT INTO categories (name) VALUES ('Tools')`)
	db.MustExec(`INSERT INTO suppliers (name, contact_person) VALUES ('North', 'Ann'), ('South', '')`)
	db.MustExec(`INSERT INTO products (name, price, quantity, reorder_level, brand_id, supplier_id) VALUES
		('Widget', 2.5, 20, 5, 1, 1),
		('Bolt', 1, 3, 10, NULL, 1),
		('Nut', 4, -1, 0, NULL, NULL)`)
	db.MustExec(`INSERT INTO orders (customer_name, total, status) VALUES ('A', 10, 'pending'), ('B', 7, 'canceled'), ('C', 5.5, NULL)`)
	db.MustExec(`INSERT INTO order_items (order_id, product_name, quantity, unit_price, total_price) VALUES (1, 'Widget', 4, 2.5, 10)`)

	svc := NewService(db)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{
		TotalProducts:       3,
		TotalBrands:         1,
		TotalCategories:     1,
		TotalSuppliers:      2,
		LowStockItems:       2,
		TotalInventoryValue: 49,
		TotalOrders:         3,
		TotalSales:          15.5,
	}, stats)

	inventory, err := svc.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, inventory, 3)
	assert.Equal(t, "Bolt", inventory[0].Name)
	assert.Equal(t, "Acme", inventory[2].BrandName)
	assert.Equal(t, 50.0, inventory[2].Value)

	sales, err := svc.Sales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, int64(3), sales[0].ID)
	assert.Equal(t, domain.OrderStatusPending, sales[0].Status)
	assert.Equal(t, int64(1), sales[2].Items)

	suppliers, err := svc.Suppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	assert.Equal(t, int64(2), suppliers[0].Products)
	assert.Equal(t, 53.0, suppliers[0].StockValue)
	assert.Equal(t, int64(0), suppliers[1].Products)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	for name, render := range map[string]func() ([]byte, error){
		"inventory": func() ([]byte, error) { return InventoryPDF(inventory, at) },
		"sales":     func() ([]byte, error) { return SalesPDF(sales, at) },
		"suppliers": func() ([]byte, error) { return SuppliersPDF(suppliers, at) },
	} {
		data, err := render()
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), name)
	}
}

func TestLongReportPaginates(t *testing.T) {
	lines := make([]InventoryLine, 120)
	for i := range lines {
		lines[i] = InventoryLine{Name: fmt.Sprintf("Product with a rather long descriptive name %d", i), Quantity: int64(i), Price: 1.25}
	}
	data, err := InventoryPDF(lines, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(data, []byte("/Type /Page\n")), 3)
}

func TestInvoicePDF(t *testing.T) {
	productID := int64(1)
	order := domain.OrderDetail{
		Order: domain.Order{ID: 7, CustomerName: "Zoë", Total: 15, Tax: 1, Discount: 2, Status: domain.OrderStatusPending},
		Items: []domain.OrderItem{
			{ProductID: &productID, ProductName: "Widget", Quantity: 2, UnitPrice: 8, TotalPrice: 16},
		},
	}
	data, err := InvoicePDF(order)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
