package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"stockroom/m/domain"
	"stockroom/m/internal/tabular"
)

const productSelect = `SELECT p.id, p.name, p.sku, COALESCE(p.description, '') AS description,
	COALESCE(p.quantity, 0) AS quantity, COALESCE(p.price, 0) AS price, COALESCE(p.discount, 0) AS discount,
	COALESCE(p.cost, 0) AS cost, p.brand_id, p.category_id, p.supplier_id,
	COALESCE(p.reorder_level, 0) AS reorder_level, COALESCE(p.unit, '') AS unit,
	COALESCE(p.created_at, '') AS created_at, COALESCE(p.updated_at, '') AS updated_at,
	COALESCE(b.name, '') AS brand_name, COALESCE(c.name, '') AS category_name, COALESCE(s.name, '') AS supplier_name
FROM products p
LEFT JOIN brands b ON b.id = p.brand_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN suppliers s ON s.id = p.supplier_id`

var productColumns = []string{
	"name", "sku", "description", "quantity", "price", "discount", "cost",
	"brand_id", "category_id", "supplier_id", "reorder_level", "unit",
}

var productHeader = []string{
	"id", "name", "sku", "description", "quantity", "price", "discount", "cost",
	"brand_id", "brand_name", "category_id", "category_name", "supplier_id", "supplier_name",
	"reorder_level", "unit", "created_at", "updated_at",
}

// ProductStore persists products. Brand, category and supplier names are
// joined in on every read.
type ProductStore struct {
	db         *sqlx.DB
	brands     *BrandStore
	categories *CategoryStore
	suppliers  *SupplierStore
}

func NewProducts(db *sqlx.DB, brands *BrandStore, categories *CategoryStore, suppliers *SupplierStore) *ProductStore {
	return &ProductStore{db: db, brands: brands, categories: categories, suppliers: suppliers}
}

func (s *ProductStore) Label() string { return "Product" }

// New returns a product carrying the column defaults.
func (s *ProductStore) New() domain.Product {
	return domain.Product{ReorderLevel: 10, Unit: "pcs"}
}

func (s *ProductStore) List(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := s.db.SelectContext(ctx, &products, productSelect+` ORDER BY p.name COLLATE NOCASE, p.id`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// LowStock lists products at or below their reorder level, emptiest first.
func (s *ProductStore) LowStock(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	query := productSelect + ` WHERE COALESCE(p.quantity, 0) <= COALESCE(p.reorder_level, 0) ORDER BY p.quantity, p.name COLLATE NOCASE`
	if err := s.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	return products, nil
}

func (s *ProductStore) Get(ctx context.Context, id int64) (domain.Product, error) {
	return s.get(ctx, s.db, id)
}

func (s *ProductStore) get(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, q, &p, productSelect+` WHERE p.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, domain.NotFound("Product")
	}
	if err != nil {
		return p, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *ProductStore) Create(ctx context.Context, p *domain.Product) (int64, error) {
	if err := validateProduct(p); err != nil {
		return 0, err
	}
	return insertProduct(ctx, s.db, p)
}

func (s *ProductStore) Update(ctx context.Context, id int64, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	n, err := updateProduct(ctx, s.db, id, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("Product")
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("Product")
	}
	return nil
}

func (s *ProductStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("delete all products: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// AdjustStock adds change to the stock on hand and records an adjustment
// transaction. The updated product is returned.
func (s *ProductStore) AdjustStock(ctx context.Context, id, change int64, notes string) (domain.Product, error) {
	if change == 0 {
		return domain.Product{}, domain.Invalid("quantity_change must not be zero")
	}
	var p domain.Product
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET quantity = COALESCE(quantity, 0) + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, change, id)
		if err != nil {
			return fmt.Errorf("adjust stock of product %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("Product")
		}
		if notes == "" {
			notes = "Manual stock adjustment"
		}
		if err := RecordTransaction(ctx, tx, id, domain.TransactionAdjustment, change, notes); err != nil {
			return err
		}
		p, err = s.get(ctx, tx, id)
		return err
	})
	return p, err
}

// Transactions returns the stock movements of a product, newest first.
func (s *ProductStore) Transactions(ctx context.Context, id int64) ([]domain.InventoryTransaction, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	txs := []domain.InventoryTransaction{}
	err := s.db.SelectContext(ctx, &txs, `SELECT id, product_id, transaction_type, quantity,
		COALESCE(notes, '') AS notes, COALESCE(transaction_date, '') AS transaction_date
		FROM inventory_transactions WHERE product_id = ? ORDER BY transaction_date DESC, id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list transactions of product %d: %w", id, err)
	}
	return txs, nil
}

// RecordTransaction appends a row to the inventory ledger.
func RecordTransaction(ctx context.Context, ex sqlx.ExecerContext, productID int64, kind string, quantity int64, notes string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO inventory_transactions (product_id, transaction_type, quantity, notes) VALUES (?, ?, ?, ?)`,
		productID, kind, quantity, notes)
	if err != nil {
		return fmt.Errorf("record %s transaction for product %d: %w", kind, productID, err)
	}
	return nil
}

func (s *ProductStore) Export(ctx context.Context) (tabular.Table, error) {
	products, err := s.List(ctx)
	if err != nil {
		return tabular.Table{}, err
	}
	t := tabular.NewTable(productHeader...)
	t.Numeric("id", "quantity", "price", "discount", "cost", "brand_id", "category_id", "supplier_id", "reorder_level")
	for _, p := range products {
		t.Append(
			tabular.FormatInt(p.ID), p.Name, tabular.FormatOptional(p.SKU), p.Description,
			tabular.FormatInt(p.Quantity), tabular.FormatFloat(p.Price), tabular.FormatFloat(p.Discount), tabular.FormatFloat(p.Cost),
			tabular.FormatOptionalInt(p.BrandID), p.BrandName,
			tabular.FormatOptionalInt(p.CategoryID), p.CategoryName,
			tabular.FormatOptionalInt(p.SupplierID), p.SupplierName,
			tabular.FormatInt(p.ReorderLevel), p.Unit, p.CreatedAt, p.UpdatedAt,
		)
	}
	return t, nil
}

// Import upserts products by SKU. Rows without a SKU match an existing
// SKU-less product with the same name. Brands, categories and suppliers named
// in a row are created when missing.
func (s *ProductStore) Import(ctx context.Context, rows []tabular.Row) (ImportResult, error) {
	var result ImportResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			line := i + 2
			id, found, err := s.match(ctx, tx, row)
			if err != nil {
				result.Fail(line, err)
				continue
			}

			p := s.New()
			if found {
				if p, err = s.get(ctx, tx, id); err != nil {
					result.Fail(line, err)
					continue
				}
			}
			if err := s.apply(ctx, tx, row, &p); err != nil {
				result.Fail(line, err)
				continue
			}
			if err := validateProduct(&p); err != nil {
				result.Fail(line, err)
				continue
			}

			if found {
				if _, err := updateProduct(ctx, tx, id, &p); err != nil {
					result.Fail(line, err)
					continue
				}
				result.Updated++
				continue
			}
			if _, err := insertProduct(ctx, tx, &p); err != nil {
				result.Fail(line, err)
				continue
			}
			result.Created++
		}
		return nil
	})
	return result, err
}

func (s *ProductStore) match(ctx context.Context, q sqlx.QueryerContext, row tabular.Row) (int64, bool, error) {
	var (
		id    int64
		query string
		arg   string
	)
	if sku := strings.TrimSpace(row.Get("sku")); sku != "" {
		query, arg = `SELECT id FROM products WHERE sku = ? ORDER BY id LIMIT 1`, sku
	} else if name := strings.TrimSpace(row.Get("name", "product_name", "product")); name != "" {
		query, arg = `SELECT id FROM products WHERE sku IS NULL AND name = ? ORDER BY id LIMIT 1`, name
	} else {
		return 0, false, domain.Invalid("name is required")
	}

	err := sqlx.GetContext(ctx, q, &id, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup product %q: %w", arg, err)
	}
	return id, true, nil
}

func (s *ProductStore) apply(ctx context.Context, tx *sqlx.Tx, row tabular.Row, p *domain.Product) error {
	if row.Has("name", "product_name", "product") {
		p.Name = row.Get("name", "product_name", "product")
	}
	if row.Has("sku") {
		sku := row.Get("sku")
		p.SKU = &sku
	}
	if row.Has("description") {
		p.Description = row.Get("description")
	}
	if row.Has("unit") {
		p.Unit = row.Get("unit")
	}

	ints := []struct {
		dst  *int64
		keys []string
	}{
		{&p.Quantity, []string{"quantity", "qty", "stock"}},
		{&p.ReorderLevel, []string{"reorder_level"}},
	}
	for _, f := range ints {
		v, ok, err := row.Int(f.keys...)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		if ok {
			*f.dst = v
		}
	}

	floats := []struct {
		dst *float64
		key string
	}{
		{&p.Price, "price"},
		{&p.Discount, "discount"},
		{&p.Cost, "cost"},
	}
	for _, f := range floats {
		v, ok, err := row.Float(f.key)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		if ok {
			*f.dst = v
		}
	}

	refs := []struct {
		dst     **int64
		store   finder
		names   []string
		idField string
	}{
		{&p.BrandID, s.brands, []string{"brand", "brand_name"}, "brand_id"},
		{&p.CategoryID, s.categories, []string{"category", "category_name"}, "category_id"},
		{&p.SupplierID, s.suppliers, []string{"supplier", "supplier_name"}, "supplier_id"},
	}
	for _, r := range refs {
		if name := strings.TrimSpace(row.Get(r.names...)); name != "" {
			id, err := r.store.FindOrCreate(ctx, tx, name)
			if err != nil {
				return err
			}
			*r.dst = &id
			continue
		}
		id, ok, err := row.Int(r.idField)
		if err != nil {
			return fmt.Errorf("%s: %w", r.idField, err)
		}
		if ok {
			*r.dst = &id
		}
	}
	return nil
}

type finder interface {
	FindOrCreate(ctx context.Context, ex sqlx.ExtContext, name string) (int64, error)
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Invalid("name is required")
	}
	if p.SKU != nil {
		sku := strings.TrimSpace(*p.SKU)
		if sku == "" {
			p.SKU = nil
		} else {
			p.SKU = &sku
		}
	}
	if p.Price < 0 || p.Discount < 0 || p.Cost < 0 {
		return domain.Invalid("price, discount and cost must not be negative")
	}
	return nil
}

func insertProduct(ctx context.Context, ex sqlx.ExecerContext, p *domain.Product) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO products (%s) VALUES (:%s)`,
		strings.Join(productColumns, ", "), strings.Join(productColumns, ", :"))
	bound, args, err := sqlx.Named(query, p)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return res.LastInsertId()
}

func updateProduct(ctx context.Context, ex sqlx.ExecerContext, id int64, p *domain.Product) (int64, error) {
	sets := make([]string, len(productColumns))
	for i, c := range productColumns {
		sets[i] = c + " = :" + c
	}
	query := `UPDATE products SET ` + strings.Join(sets, ", ") + `, updated_at = CURRENT_TIMESTAMP`
	bound, args, err := sqlx.Named(query, p)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, bound+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return 0, fmt.Errorf("update product %d: %w", id, err)
	}
	return res.RowsAffected()
}
