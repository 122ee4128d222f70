package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceItem(t *testing.T) {
	product := &productSnapshot{Name: "Widget", Price: 10, Discount: 2}

	tests := []struct {
		name         string
		item         ItemInput
		product      *productSnapshot
		wantUnit     string
		wantDiscount string
	}{
		{"product discount", ItemInput{Quantity: 1}, product, "8", "2"},
		{"supplied discount wins", ItemInput{Quantity: 1, Discount: ptr(0.5)}, product, "9.5", "0.5"},
		{"supplied price wins", ItemInput{Quantity: 1, UnitPrice: ptr(7.25)}, product, "7.25", "2"},
		{"zero price falls back", ItemInput{Quantity: 1, UnitPrice: ptr(0.0)}, product, "8", "2"},
		{"discount above price", ItemInput{Quantity: 1, Discount: ptr(15.0)}, product, "0", "15"},
		{"manual line", ItemInput{Quantity: 1, UnitPrice: ptr(6.0), Discount: ptr(1.5)}, nil, "4.5", "1.5"},
		{"manual line without price", ItemInput{Quantity: 1}, nil, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, discount := priceItem(tt.item, tt.product)
			assert.Equal(t, tt.wantUnit, unit.String())
			assert.Equal(t, tt.wantDiscount, discount.String())
		})
	}
}

func TestLineAndOrderTotal(t *testing.T) {
	unit, _ := priceItem(ItemInput{Quantity: 3, UnitPrice: ptr(0.1)}, nil)
	line := lineTotal(3, unit)
	assert.Equal(t, "0.3", line.String())
	assert.Equal(t, "-0.7", orderTotal(line, 1, 0).String(), "totals are not clamped")
}
