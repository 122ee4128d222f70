package domain

// Product is a catalog entry with its stock on hand. Quantity is not floored
// at zero: orders may oversell.
type Product struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	SKU          *string `db:"sku" json:"sku"`
	Description  string  `db:"description" json:"description"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	Price        float64 `db:"price" json:"price"`
	Discount     float64 `db:"discount" json:"discount"`
	Cost         float64 `db:"cost" json:"cost"`
	BrandID      *int64  `db:"brand_id" json:"brand_id"`
	CategoryID   *int64  `db:"category_id" json:"category_id"`
	SupplierID   *int64  `db:"supplier_id" json:"supplier_id"`
	ReorderLevel int64   `db:"reorder_level" json:"reorder_level"`
	Unit         string  `db:"unit" json:"unit"`
	CreatedAt    string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at,omitempty"`

	BrandName    string `db:"brand_name" json:"brand_name,omitempty"`
	CategoryName string `db:"category_name" json:"category_name,omitempty"`
	SupplierName string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p Product) LowStock() bool {
	return p.Quantity <= p.ReorderLevel
}
