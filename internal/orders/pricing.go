package orders

import "github.com/shopspring/decimal"

// productSnapshot is the product state an order line is priced from.
type productSnapshot struct {
	Name     string  `db:"name"`
	Price    float64 `db:"price"`
	Discount float64 `db:"discount"`
	Quantity int64   `db:"quantity"`
}

// priceItem resolves the unit price and the discount recorded on the line.
//
// With a product, the supplied discount wins over the product discount and a
// positive supplied unit price wins over the discounted list price. Without a
// product the supplied discount is taken off the supplied unit price. Unit
// prices never drop below zero.
func priceItem(item ItemInput, product *productSnapshot) (unit, discount decimal.Decimal) {
	supplied := decimal.Zero
	if item.UnitPrice != nil {
		supplied = decimal.NewFromFloat(*item.UnitPrice)
	}

	if product == nil {
		if item.Discount != nil {
			discount = decimal.NewFromFloat(*item.Discount)
		}
		return floorZero(supplied.Sub(discount)), discount
	}

	discount = decimal.NewFromFloat(product.Discount)
	if item.Discount != nil {
		discount = decimal.NewFromFloat(*item.Discount)
	}
	if supplied.IsPositive() {
		return supplied, discount
	}
	return floorZero(decimal.NewFromFloat(product.Price).Sub(discount)), discount
}

func lineTotal(quantity int64, unit decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(quantity).Mul(unit)
}

// orderTotal is subtotal minus the order discount plus tax. It is not
// clamped or rounded.
func orderTotal(subtotal decimal.Decimal, discount, tax float64) decimal.Decimal {
	return subtotal.Sub(decimal.NewFromFloat(discount)).Add(decimal.NewFromFloat(tax))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
