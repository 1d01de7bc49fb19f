package dashboard

import (
	"fmt"

	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
)

// ANSI escape sequences for terminal rendering.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func (d *Dashboard) paint(color, s string) string {
	if !d.color {
		return s
	}
	return color + s + ansiReset
}

func (d *Dashboard) statusLabel(st order.Status) string {
	switch st {
	case order.StatusDelivered:
		return d.paint(ansiGreen, string(st))
	case order.StatusCancelled:
		return d.paint(ansiRed, string(st))
	case order.StatusPending:
		return d.paint(ansiYellow, string(st))
	default:
		return d.paint(ansiCyan, string(st))
	}
}

func (d *Dashboard) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *Dashboard) println(s string) {
	fmt.Fprintln(d.out, s)
}

func (d *Dashboard) printOrderRow(o *order.Order) {
	extra := ""
	if o.CancelReason != "" {
		extra = "  " + d.paint(ansiRed, o.CancelReason)
	}
	if o.TrackingID != "" {
		extra += "  " + o.TrackingID
	}
	d.printf("%-8s %-10s %-5s %-16s%s\n",
		o.ID, o.CreatedAt.Format("2006-01-02"), o.PaymentMode, d.statusLabel(o.Status), extra)
}

func (d *Dashboard) printOrderTable(orders []*order.Order) {
	if len(orders) == 0 {
		d.println("No orders.")
		return
	}
	d.printf("%-8s %-10s %-5s %-16s\n", "ID", "Date", "Pay", "Status")
	for _, o := range orders {
		d.printOrderRow(o)
	}
}

func (d *Dashboard) printProductTable(products []*product.Product) {
	if len(products) == 0 {
		d.println("No products.")
		return
	}
	d.printf("%-8s %-12s %-14s %-24s %10s %6s\n",
		"ID", "Category", "Brand", "Name", "Price", "Stock")
	for _, p := range products {
		stock := fmt.Sprintf("%6d", p.Stock)
		if p.Stock < d.lowStock {
			stock = d.paint(ansiRed, stock)
		}
		d.printf("%-8s %-12s %-14s %-24s %10s %s\n",
			p.ID, p.Category, p.Brand, p.Name, p.Price.StringFixed(2), stock)
	}
}
