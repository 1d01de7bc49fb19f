package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultMaxItems bounds the number of line items per order. The bound is
// enforced at intake; the fulfillment pipeline never sees an oversized order.
const DefaultMaxItems = 10

// Sentinel errors surfaced to the dashboard.
var (
	ErrNotFound      = errors.New("order not found")
	ErrTerminalState = errors.New("order is in a terminal state")
	ErrNotCancelled  = errors.New("order is not cancelled")
	ErrTooManyItems  = errors.New("too many items in order")
	ErrEmptyItems    = errors.New("order has no items")
)

// Cancellation reasons attached to orders the pipeline rejects. These exact
// strings are persisted and rendered, and reports aggregate over them.
const (
	ReasonValidationFailed  = "Validation failed"
	ReasonInventoryShortage = "Inventory Shortage"
	ReasonPaymentFailed     = "Payment Failed"
)

// InvalidProductReason builds the cancellation reason for an unknown product.
func InvalidProductReason(productID string) string {
	return fmt.Sprintf("Invalid product %s", productID)
}

// PaymentMode records how an order is to be settled. It travels with the
// order record; the authorization decision itself is taken by the payment
// authorizer on the computed total.
type PaymentMode string

const (
	PaymentCOD  PaymentMode = "COD"
	PaymentCard PaymentMode = "CARD"
)

// Item is a single order line: a product reference and a positive quantity.
type Item struct {
	ProductID string
	Quantity  int
}

// Order is a retail order moving through the fulfillment lifecycle.
//
// Total is computed by the pipeline at pricing time and is immutable for the
// order until a retry re-runs the full pipeline, which recomputes it from
// current catalog prices. CancelReason is set iff Status is CANCELLED;
// TrackingID is set once the order has shipped.
type Order struct {
	ID           string
	Items        []Item
	Status       Status
	PaymentMode  PaymentMode
	Total        decimal.Decimal
	CancelReason string
	TrackingID   string
	CreatedAt    time.Time
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}
