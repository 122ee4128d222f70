package domain

const (
	TransactionSale       = "sale"
	TransactionCancel     = "cancel"
	TransactionRefund     = "refund"
	TransactionAdjustment = "adjustment"
)

type InventoryTransaction struct {
	ID              int64  `db:"id" json:"id"`
	ProductID       int64  `db:"product_id" json:"product_id"`
	TransactionType string `db:"transaction_type" json:"transaction_type"`
	Quantity        int64  `db:"quantity" json:"quantity"`
	Notes           string `db:"notes" json:"notes"`
	TransactionDate string `db:"transaction_date" json:"transaction_date"`
}
