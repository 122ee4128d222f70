package domain

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusRefunded OrderStatus = "refunded"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCanceled, OrderStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              int64       `db:"id" json:"id"`
	CustomerName    string      `db:"customer_name" json:"customer_name"`
	CustomerPhone   string      `db:"customer_phone" json:"customer_phone"`
	CustomerAddress string      `db:"customer_address" json:"customer_address"`
	Total           float64     `db:"total" json:"total"`
	Tax             float64     `db:"tax" json:"tax"`
	Discount        float64     `db:"discount" json:"discount"`
	Status          OrderStatus `db:"status" json:"status"`
	CreatedAt       string      `db:"created_at" json:"created_at"`
}

// OrderItem is a line of an order. ProductName and UnitPrice are snapshots
// taken when the order was placed.
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   *int64  `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int64   `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Discount    float64 `db:"discount" json:"discount"`
	TotalPrice  float64 `db:"total_price" json:"total_price"`
}

type OrderDetail struct {
	Order
	Items []OrderItem `json:"items"`
}

// Subtotal sums the stored line totals.
func (d OrderDetail) Subtotal() float64 {
	var sum float64
	for _, it := range d.Items {
		sum += it.TotalPrice
	}
	return sum
}
