package domain

type Stats struct {
	TotalProducts       int64   `db:"total_products" json:"total_products"`
	TotalBrands         int64   `db:"total_brands" json:"total_brands"`
	TotalCategories     int64   `db:"total_categories" json:"total_categories"`
	TotalSuppliers      int64   `db:"total_suppliers" json:"total_suppliers"`
	LowStockItems       int64   `db:"low_stock_items" json:"low_stock_items"`
	TotalInventoryValue float64 `db:"total_inventory_value" json:"total_inventory_value"`
	TotalOrders         int64   `db:"total_orders" json:"total_orders"`
	TotalSales          float64 `db:"total_sales" json:"total_sales"`
}
