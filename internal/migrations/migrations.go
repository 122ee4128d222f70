package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Tables lists every application table parents first. Restores copy rows in
// this order and delete them in reverse.
var Tables = []string{
	"brands",
	"categories",
	"suppliers",
	"products",
	"inventory_transactions",
	"orders",
	"order_items",
}

// Run creates the database schema required for the inventory backend.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS brands (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS categories (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS suppliers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            contact_person TEXT,
            email TEXT,
            phone TEXT,
            address TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            sku TEXT UNIQUE,
            description TEXT,
            quantity INTEGER DEFAULT 0,
            price REAL NOT NULL,
            discount REAL DEFAULT 0,
            cost REAL,
            brand_id INTEGER,
            category_id INTEGER,
            supplier_id INTEGER,
            reorder_level INTEGER DEFAULT 10,
            unit TEXT DEFAULT 'pcs',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(brand_id) REFERENCES brands(id),
            FOREIGN KEY(category_id) REFERENCES categories(id),
            FOREIGN KEY(supplier_id) REFERENCES suppliers(id)
        );`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id INTEGER NOT NULL,
            transaction_type TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            notes TEXT,
            transaction_date DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
		`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            customer_name TEXT,
            customer_phone TEXT,
            customer_address TEXT,
            total REAL DEFAULT 0,
            tax REAL DEFAULT 0,
            discount REAL DEFAULT 0,
            status TEXT DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL,
            product_id INTEGER,
            product_name TEXT,
            quantity INTEGER NOT NULL,
            unit_price REAL NOT NULL,
            discount REAL DEFAULT 0,
            total_price REAL NOT NULL,
            FOREIGN KEY(order_id) REFERENCES orders(id),
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_product ON inventory_transactions(product_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Databases created before discounts and order status existed.
	upgrades := []struct{ table, column, ddl string }{
		{"products", "discount", `ALTER TABLE products ADD COLUMN discount REAL DEFAULT 0`},
		{"orders", "status", `ALTER TABLE orders ADD COLUMN status TEXT DEFAULT 'pending'`},
		{"order_items", "discount", `ALTER TABLE order_items ADD COLUMN discount REAL DEFAULT 0`},
	}
	for _, u := range upgrades {
		exists, err := HasColumn(context.Background(), db, "main", u.table, u.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Exec(u.ddl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Columns returns the column names of table in the given schema ("main" or an
// attached database), in declaration order.
func Columns(ctx context.Context, q sqlx.QueryerContext, schema, table string) ([]string, error) {
	var cols []string
	query := fmt.Sprintf(`SELECT name FROM pragma_table_info('%s', '%s')`, table, schema)
	if err := sqlx.SelectContext(ctx, q, &cols, query); err != nil {
		return nil, fmt.Errorf("inspect %s.%s: %w", schema, table, err)
	}
	return cols, nil
}

// HasColumn reports whether table has the named column.
func HasColumn(ctx context.Context, q sqlx.QueryerContext, schema, table, column string) (bool, error) {
	cols, err := Columns(ctx, q, schema, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}
