package textfile

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

// Record formats, one record per line, pipe-delimited:
//
//	products.txt   ProductID|Category|Brand|Name|Price|Stock
//	orders.txt     OrderID|Date|PaymentMode|Items|Status[|CancelReason]
//	invoices.txt   InvoiceID|OrderID|Total|Date
//	shipments.txt  TrackingID|OrderID|Status
//	admins.txt     Username,PassHash
//
// Items serialize as comma-separated productID:qty pairs. The order's charge
// total is deliberately absent: it is derived state, recomputed by the
// pipeline, never stored independently of the items.

const dateLayout = "2006-01-02"

func encodeProduct(p product.Product) string {
	return strings.Join([]string{
		p.ID, p.Category, p.Brand, p.Name, p.Price.String(), strconv.Itoa(p.Stock),
	}, "|")
}

func decodeProduct(line string) (product.Product, bool) {
	parts := splitRecord(line, 6)
	if parts == nil {
		return product.Product{}, false
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(parts[4], ",", ""))
	if err != nil {
		return product.Product{}, false
	}
	stock, err := strconv.Atoi(parts[5])
	if err != nil || stock < 0 {
		return product.Product{}, false
	}
	return product.Product{
		ID:       parts[0],
		Category: parts[1],
		Brand:    parts[2],
		Name:     parts[3],
		Price:    price,
		Stock:    stock,
	}, true
}

func encodeOrder(o *order.Order) string {
	fields := []string{
		o.ID,
		o.CreatedAt.Format(dateLayout),
		string(o.PaymentMode),
		order.EncodeItems(o.Items),
		string(o.Status),
	}
	if o.CancelReason != "" {
		fields = append(fields, o.CancelReason)
	}
	return strings.Join(fields, "|")
}

func decodeOrder(line string) (*order.Order, bool) {
	parts := splitRecord(line, 5)
	if parts == nil {
		return nil, false
	}
	st, err := order.ParseStatus(parts[4])
	if err != nil {
		return nil, false
	}
	items := order.DecodeItems(parts[3])
	if len(items) == 0 {
		return nil, false
	}
	created, err := time.Parse(dateLayout, parts[1])
	if err != nil {
		created = time.Time{}
	}
	o := &order.Order{
		ID:          parts[0],
		CreatedAt:   created,
		PaymentMode: order.PaymentMode(strings.ToUpper(parts[2])),
		Items:       items,
		Status:      st,
	}
	if len(parts) > 5 {
		o.CancelReason = parts[5]
	}
	return o, true
}

func encodeInvoice(inv invoice.Invoice) string {
	return strings.Join([]string{
		inv.ID, inv.OrderID, inv.Total.String(), inv.IssuedAt.Format(dateLayout),
	}, "|")
}

func decodeInvoice(line string) (invoice.Invoice, bool) {
	parts := splitRecord(line, 4)
	if parts == nil {
		return invoice.Invoice{}, false
	}
	total, err := decimal.NewFromString(parts[2])
	if err != nil {
		return invoice.Invoice{}, false
	}
	issued, err := time.Parse(dateLayout, parts[3])
	if err != nil {
		issued = time.Time{}
	}
	return invoice.Invoice{
		ID:       parts[0],
		OrderID:  parts[1],
		Total:    total,
		IssuedAt: issued,
	}, true
}

func encodeShipment(sh shipment.Shipment) string {
	return strings.Join([]string{sh.TrackingID, sh.OrderID, string(sh.Status)}, "|")
}

func decodeShipment(line string) (shipment.Shipment, bool) {
	parts := splitRecord(line, 3)
	if parts == nil {
		return shipment.Shipment{}, false
	}
	return shipment.Shipment{
		TrackingID: parts[0],
		OrderID:    parts[1],
		Status:     shipment.Status(parts[2]),
	}, true
}

func encodeAdmin(a auth.Admin) string {
	return a.Username + "," + a.PassHash
}

func decodeAdmin(line string) (auth.Admin, bool) {
	user, hash, ok := strings.Cut(strings.TrimSpace(line), ",")
	user, hash = strings.TrimSpace(user), strings.TrimSpace(hash)
	if !ok || user == "" || hash == "" {
		return auth.Admin{}, false
	}
	return auth.Admin{Username: user, PassHash: hash}, true
}

// splitRecord splits a pipe-delimited record and trims each field, returning
// nil when fewer than min fields are present.
func splitRecord(line string, min int) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := strings.Split(line, "|")
	if len(parts) < min {
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
