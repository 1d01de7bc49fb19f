// Package report builds operational summaries over the order ledger: the
// dashboard report, the stock export, and customer receipts.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

// ReasonCount pairs a cancellation reason with its occurrence count.
type ReasonCount struct {
	Reason string
	Count  int
}

// Summary aggregates the state of the active order ledger. Revenue counts
// only DELIVERED orders, at their invoiced totals.
type Summary struct {
	TotalOrders int
	ByStatus    map[order.Status]int
	Delivered   int
	Cancelled   int
	Revenue     decimal.Decimal
	TopReasons  []ReasonCount
}

// Build computes a Summary from the given orders, resolving delivered
// revenue through the invoice ledger.
func Build(orders []*order.Order, invoices *invoice.Ledger) Summary {
	s := Summary{
		TotalOrders: len(orders),
		ByStatus:    make(map[order.Status]int),
		Revenue:     decimal.Zero,
	}
	reasons := make(map[string]int)
	for _, o := range orders {
		s.ByStatus[o.Status]++
		switch o.Status {
		case order.StatusDelivered:
			s.Delivered++
			if inv, ok := invoices.FindByOrder(o.ID); ok {
				s.Revenue = s.Revenue.Add(inv.Total)
			}
		case order.StatusCancelled:
			s.Cancelled++
			if o.CancelReason != "" {
				reasons[o.CancelReason]++
			}
		}
	}
	s.TopReasons = topReasons(reasons, 3)
	return s
}

func topReasons(counts map[string]int, n int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

var statusOrder = []order.Status{
	order.StatusPending,
	order.StatusPacked,
	order.StatusShipped,
	order.StatusOutForDelivery,
	order.StatusDelivered,
	order.StatusCancelled,
}

// WriteText renders the summary as the dashboard report.
func WriteText(w io.Writer, s Summary) error {
	var b strings.Builder
	b.WriteString("===== ORDER REPORT =====\n")
	fmt.Fprintf(&b, "Total orders:     %d\n", s.TotalOrders)
	for _, st := range statusOrder {
		if c := s.ByStatus[st]; c > 0 {
			fmt.Fprintf(&b, "  %-16s %d\n", string(st)+":", c)
		}
	}
	fmt.Fprintf(&b, "Delivered revenue: %s\n", s.Revenue.StringFixed(2))
	if len(s.TopReasons) > 0 {
		b.WriteString("Top cancellation reasons:\n")
		for i, rc := range s.TopReasons {
			fmt.Fprintf(&b, "  %d. %s (%d)\n", i+1, rc.Reason, rc.Count)
		}
	}
	b.WriteString("========================\n")
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write report")
}

// WriteJSON renders the summary as indented JSON for export.
func WriteJSON(w io.Writer, s Summary) error {
	var e jx.Encoder
	e.SetIdent(2)
	e.Obj(func(e *jx.Encoder) {
		e.Field("total_orders", func(e *jx.Encoder) { e.Int(s.TotalOrders) })
		e.Field("by_status", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, st := range statusOrder {
					if c := s.ByStatus[st]; c > 0 {
						e.Field(string(st), func(e *jx.Encoder) { e.Int(c) })
					}
				}
			})
		})
		e.Field("delivered", func(e *jx.Encoder) { e.Int(s.Delivered) })
		e.Field("cancelled", func(e *jx.Encoder) { e.Int(s.Cancelled) })
		e.Field("delivered_revenue", func(e *jx.Encoder) { e.Str(s.Revenue.StringFixed(2)) })
		e.Field("top_cancellation_reasons", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, rc := range s.TopReasons {
					e.Obj(func(e *jx.Encoder) {
						e.Field("reason", func(e *jx.Encoder) { e.Str(rc.Reason) })
						e.Field("count", func(e *jx.Encoder) { e.Int(rc.Count) })
					})
				}
			})
		})
	})
	if _, err := w.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write report json")
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "write report json")
}

// WriteStockExport renders the catalog as a stock listing, flagging
// products at or below the low-stock threshold.
func WriteStockExport(w io.Writer, products []product.Product, lowStock int) error {
	var b strings.Builder
	b.WriteString("===== STOCK EXPORT =====\n")
	fmt.Fprintf(&b, "%-8s %-14s %-24s %8s %6s\n", "ID", "Brand", "Name", "Price", "Stock")
	for _, p := range products {
		flag := ""
		if p.Stock < lowStock {
			flag = "  LOW"
		}
		fmt.Fprintf(&b, "%-8s %-14s %-24s %8s %6d%s\n",
			p.ID, p.Brand, p.Name, p.Price.StringFixed(2), p.Stock, flag)
	}
	b.WriteString("========================\n")
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write stock export")
}

// ErrNotDelivered is returned when a receipt is requested for an order that
// has not completed delivery.
var ErrNotDelivered = errors.New("order not delivered")

// WriteReceipt renders a customer receipt for a DELIVERED order, itemized at
// the invoiced total.
func WriteReceipt(
	w io.Writer,
	o *order.Order,
	inv invoice.Invoice,
	sh shipment.Shipment,
	lookup func(productID string) (*product.Product, error),
) error {
	if o.Status != order.StatusDelivered {
		return errors.Wrapf(ErrNotDelivered, "order %s is %s", o.ID, o.Status)
	}

	var b strings.Builder
	b.WriteString("===== RECEIPT =====\n")
	fmt.Fprintf(&b, "Order:    %s\n", o.ID)
	fmt.Fprintf(&b, "Invoice:  %s\n", inv.ID)
	fmt.Fprintf(&b, "Tracking: %s\n", sh.TrackingID)
	fmt.Fprintf(&b, "Payment:  %s\n", o.PaymentMode)
	b.WriteString("-------------------\n")
	for _, it := range o.Items {
		name := it.ProductID
		line := "?"
		if p, err := lookup(it.ProductID); err == nil {
			name = p.Name
			line = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2)
		}
		fmt.Fprintf(&b, "%-24s x%-3d %10s\n", name, it.Quantity, line)
	}
	b.WriteString("-------------------\n")
	fmt.Fprintf(&b, "TOTAL: %s\n", inv.Total.StringFixed(2))
	b.WriteString("===================\n")
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write receipt")
}
