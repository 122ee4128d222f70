package reports

import (
	"fmt"
	"time"

	"stockroom/m/domain"
)

func InventoryPDF(lines []InventoryLine, at time.Time) ([]byte, error) {
	d := newDocument("Inventory Report", generatedLine(at))
	d.table(
		column{"Product", 60, "L"},
		column{"SKU", 28, "L"},
		column{"Brand", 30, "L"},
		column{"Qty", 17, "R"},
		column{"Price", 20, "R"},
		column{"Value", 25, "R"},
	)

	var items int64
	var value float64
	for _, l := range lines {
		d.row(l.Name, l.SKU, l.BrandName, fmt.Sprint(l.Quantity), money(l.Price), money(l.Value))
		items += l.Quantity
		value += l.Value
	}

	d.gap()
	d.summary("Products", fmt.Sprint(len(lines)), false)
	d.summary("Total items in stock", fmt.Sprint(items), false)
	d.summary("Stock value", money(value), true)
	return d.bytes()
}

func SalesPDF(lines []SalesLine, at time.Time) ([]byte, error) {
	d := newDocument("Sales Report", generatedLine(at))
	d.table(
		column{"Order", 15, "L"},
		column{"Date", 40, "L"},
		column{"Customer", 55, "L"},
		column{"Status", 25, "L"},
		column{"Items", 15, "R"},
		column{"Total", 30, "R"},
	)

	var sales float64
	var returned int
	for _, l := range lines {
		d.row(fmt.Sprintf("#%d", l.ID), l.CreatedAt, l.CustomerName, string(l.Status), fmt.Sprint(l.Items), money(l.Total))
		if l.Status == domain.OrderStatusPending {
			sales += l.Total
		} else {
			returned++
		}
	}

	d.gap()
	d.summary("Orders", fmt.Sprint(len(lines)), false)
	d.summary("Canceled or refunded", fmt.Sprint(returned), false)
	d.summary("Total sales", money(sales), true)
	return d.bytes()
}

func SuppliersPDF(lines []SupplierLine, at time.Time) ([]byte, error) {
	d := newDocument("Suppliers Report", generatedLine(at))
	d.table(
		column{"Supplier", 55, "L"},
		column{"Contact", 40, "L"},
		column{"Phone", 35, "L"},
		column{"Products", 20, "R"},
		column{"Stock value", 30, "R"},
	)

	var value float64
	for _, l := range lines {
		d.row(l.Name, l.ContactPerson, l.Phone, fmt.Sprint(l.Products), money(l.StockValue))
		value += l.StockValue
	}

	d.gap()
	d.summary("Suppliers", fmt.Sprint(len(lines)), false)
	d.summary("Stock value", money(value), true)
	return d.bytes()
}

// InvoicePDF renders an order. The total printed is the stored order total;
// the subtotal is the sum of the stored line totals.
func InvoicePDF(order domain.OrderDetail) ([]byte, error) {
	d := newDocument("INVOICE", fmt.Sprintf("Order #%d  |  %s  |  %s", order.ID, order.CreatedAt, order.Status))

	d.line("Billed to", "B")
	name := order.CustomerName
	if name == "" {
		name = "Walk-in customer"
	}
	d.line(name, "")
	if order.CustomerPhone != "" {
		d.line(order.CustomerPhone, "")
	}
	if order.CustomerAddress != "" {
		d.line(order.CustomerAddress, "")
	}
	d.gap()

	d.table(
		column{"#", 10, "L"},
		column{"Product", 70, "L"},
		column{"Qty", 15, "R"},
		column{"Unit price", 25, "R"},
		column{"Discount", 25, "R"},
		column{"Total", 35, "R"},
	)
	for i, it := range order.Items {
		d.row(fmt.Sprint(i+1), it.ProductName, fmt.Sprint(it.Quantity), money(it.UnitPrice), money(it.Discount), money(it.TotalPrice))
	}

	d.gap()
	d.summary("Subtotal", money(order.Subtotal()), false)
	d.summary("Discount", "-"+money(order.Discount), false)
	d.summary("Tax", money(order.Tax), false)
	d.summary("Total", money(order.Total), true)
	return d.bytes()
}
