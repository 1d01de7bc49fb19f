package order

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/orderdesk/internal/audit"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/payment"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

// ErrInvalidArgument is returned for bad operation input (e.g. a
// non-positive restock quantity). No state is changed.
var ErrInvalidArgument = errors.New("invalid argument")

// Result is the outcome of a single advance or retry transition. Reason is
// set when the transition cancelled the order.
type Result struct {
	OrderID string
	Status  Status
	Reason  string
}

// EngineConfig holds non-dependency engine configuration.
type EngineConfig struct {
	// MaxItems bounds line items per order at intake. Zero means
	// DefaultMaxItems.
	MaxItems int
	// TracerProvider and MeterProvider instrument the pipeline. Nil means
	// no-op telemetry.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Engine is the order fulfillment core: it owns the status state machine,
// the inventory reservation/rollback protocol, and derived-record issuance.
// It mutates the shared catalog and order ledger in place.
//
// Every operation runs under one mutex spanning the whole intake pipeline.
// The dashboard is a single sequential session, but the pipeline steps are
// not individually atomic, so any embedding that introduces concurrency
// still gets transitions that never interleave on a product's stock.
type Engine struct {
	mu        sync.Mutex
	catalog   *product.Catalog
	orders    *Ledger
	invoices  *invoice.Ledger
	shipments *shipment.Ledger
	payments  payment.Authorizer
	trail     audit.Recorder

	maxItems int
	now      func() time.Time

	tracer        trace.Tracer
	advances      metric.Int64Counter
	cancellations metric.Int64Counter
	invoiced      metric.Int64Counter
}

// NewEngine wires the fulfillment engine to its collaborators.
func NewEngine(
	cfg EngineConfig,
	catalog *product.Catalog,
	orders *Ledger,
	invoices *invoice.Ledger,
	shipments *shipment.Ledger,
	payments payment.Authorizer,
	trail audit.Recorder,
) *Engine {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	if trail == nil {
		trail = audit.Nop{}
	}

	meter := cfg.MeterProvider.Meter("orderdesk.fulfillment")
	advances, _ := meter.Int64Counter("orders_advanced_total")
	cancellations, _ := meter.Int64Counter("orders_cancelled_total")
	invoiced, _ := meter.Int64Counter("invoices_issued_total")

	return &Engine{
		catalog:       catalog,
		orders:        orders,
		invoices:      invoices,
		shipments:     shipments,
		payments:      payments,
		trail:         trail,
		maxItems:      cfg.MaxItems,
		now:           time.Now,
		tracer:        cfg.TracerProvider.Tracer("orderdesk.fulfillment"),
		advances:      advances,
		cancellations: cancellations,
		invoiced:      invoiced,
	}
}

// Submit creates a new PENDING order from the given line items. Capacity is
// enforced here, at intake; the pipeline never sees an oversized order.
func (e *Engine) Submit(items []Item, mode PaymentMode) (*Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if len(items) > e.maxItems {
		return nil, errors.Wrapf(ErrTooManyItems, "%d items, limit %d", len(items), e.maxItems)
	}
	if mode == "" {
		mode = PaymentCOD
	}

	o := &Order{
		ID:          e.orders.NextID(),
		Items:       append([]Item(nil), items...),
		Status:      StatusPending,
		PaymentMode: mode,
		CreatedAt:   e.now(),
	}
	e.orders.Append(o)
	e.trail.Record(o.ID, "INTAKE", "OK", "Order created")
	return o, nil
}

// Advance moves an order one step through its lifecycle. For a PENDING
// order this runs the full intake pipeline; pipeline failures are resolved
// into a CANCELLED order with a reason on the Result, not returned as
// errors. Errors are reserved for terminal-state violations, unknown
// orders, and internal invariant breaches.
func (e *Engine) Advance(ctx context.Context, orderID string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.orders.Find(orderID)
	if err != nil {
		return Result{}, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.Advance",
		trace.WithAttributes(
			attribute.String("order.id", o.ID),
			attribute.String("order.status", string(o.Status)),
		))
	defer span.End()

	if o.Status.Terminal() {
		return Result{OrderID: o.ID, Status: o.Status, Reason: o.CancelReason},
			errors.Wrapf(ErrTerminalState, "order %s is %s", o.ID, o.Status)
	}

	if o.Status == StatusPending {
		res := e.runIntake(ctx, o)
		e.advances.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(res.Status))))
		return res, nil
	}

	next, ok := o.Status.next()
	if !ok {
		return Result{}, errors.Errorf("order %s: no transition from %s", o.ID, o.Status)
	}

	if next == StatusShipped {
		sh, err := e.shipments.Create(o.ID)
		if err != nil {
			// Idempotency breach: a shipment for this order already exists,
			// which means the pipeline re-entered. Reject without mutating.
			zctx.From(ctx).Warn("Duplicate shipment rejected",
				zap.String("order_id", o.ID), zap.Error(err))
			e.trail.Record(o.ID, "SHIPMENT", "FAIL", err.Error())
			return Result{}, errors.Wrap(err, "create shipment")
		}
		o.TrackingID = sh.TrackingID
		e.trail.Record(o.ID, "SHIPMENT", "OK", "Created "+sh.TrackingID)
	}

	o.Status = next
	switch next {
	case StatusOutForDelivery:
		e.shipments.SetStatus(o.ID, shipment.StatusOutForDelivery)
	case StatusDelivered:
		e.shipments.SetStatus(o.ID, shipment.StatusDelivered)
	}

	e.trail.Record(o.ID, "STATUS", "OK", "Status changed to "+string(next))
	e.advances.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(next))))
	return Result{OrderID: o.ID, Status: o.Status}, nil
}

// Retry resets a CANCELLED order to PENDING and reruns the full intake
// pipeline. Repeated retries of a still-failing order leave exactly one
// cancellation reason and never duplicate invoices or stock deductions.
func (e *Engine) Retry(ctx context.Context, orderID string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.orders.Find(orderID)
	if err != nil {
		return Result{}, err
	}
	if o.Status != StatusCancelled {
		return Result{}, errors.Wrapf(ErrNotCancelled, "order %s is %s", o.ID, o.Status)
	}

	ctx, span := e.tracer.Start(ctx, "engine.Retry",
		trace.WithAttributes(attribute.String("order.id", o.ID)))
	defer span.End()

	o.CancelReason = ""
	o.Status = StatusPending
	e.trail.Record(o.ID, "RETRY", "OK", "Reset to PENDING")

	res := e.runIntake(ctx, o)
	e.advances.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(res.Status))))
	return res, nil
}

// runIntake executes validation → inventory check → reservation → pricing →
// payment → commit, short-circuiting on the first failure. Any failure
// resolves into CANCELLED with a specific reason; catalog changes made
// before the failing step are fully reverted.
func (e *Engine) runIntake(ctx context.Context, o *Order) Result {
	ctx, span := e.tracer.Start(ctx, "engine.intake")
	defer span.End()

	// Structural validation.
	if !structurallyValid(o) {
		return e.cancel(ctx, o, ReasonValidationFailed)
	}
	e.trail.Record(o.ID, "VALIDATION", "OK", "Valid order")

	// Inventory check over all items before any stock moves: a shortage on
	// a later item must not leave earlier items partially reserved.
	for _, it := range o.Items {
		p, err := e.catalog.Find(it.ProductID)
		if err != nil {
			return e.cancel(ctx, o, InvalidProductReason(it.ProductID))
		}
		if p.Stock < it.Quantity {
			return e.cancel(ctx, o, ReasonInventoryShortage)
		}
	}

	// Reservation. Checks passed under the same lock, so deduction cannot
	// fail here; if it somehow does, restore what was taken and cancel.
	for i, it := range o.Items {
		if err := e.catalog.Deduct(it.ProductID, it.Quantity); err != nil {
			e.release(o.Items[:i])
			return e.cancel(ctx, o, ReasonInventoryShortage)
		}
	}
	e.trail.Record(o.ID, "INVENTORY", "OK", "Stock reserved")

	// Pricing: recomputed fresh each run, so a retry after a price change
	// charges current prices.
	total := decimal.Zero
	for _, it := range o.Items {
		p, _ := e.catalog.Find(it.ProductID)
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	o.Total = total

	// Payment authorization. A decline rolls the reservation back in full.
	if err := e.payments.Authorize(total); err != nil {
		e.release(o.Items)
		e.trail.Record(o.ID, "PAYMENT", "FAIL", err.Error())
		return e.cancel(ctx, o, ReasonPaymentFailed)
	}
	e.trail.Record(o.ID, "PAYMENT", "OK", "Approved total "+total.String())

	// Commit: invoice first, so an idempotency breach leaves the order
	// PENDING and the stock untouched instead of half-committed.
	inv, err := e.invoices.Issue(o.ID, total, e.now())
	if err != nil {
		e.release(o.Items)
		zctx.From(ctx).Warn("Duplicate invoice rejected",
			zap.String("order_id", o.ID), zap.Error(err))
		e.trail.Record(o.ID, "INVOICE", "FAIL", err.Error())
		return Result{OrderID: o.ID, Status: o.Status, Reason: err.Error()}
	}
	e.invoiced.Add(ctx, 1)
	e.trail.Record(o.ID, "INVOICE", "OK", "Issued "+inv.ID)

	o.Status = StatusPacked
	e.trail.Record(o.ID, "STATUS", "OK", "Status changed to PACKED")
	return Result{OrderID: o.ID, Status: o.Status}
}

func (e *Engine) cancel(ctx context.Context, o *Order, reason string) Result {
	o.Status = StatusCancelled
	o.CancelReason = reason
	e.trail.Record(o.ID, "CANCEL", "FAIL", "Order cancelled: "+reason)
	e.cancellations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return Result{OrderID: o.ID, Status: o.Status, Reason: reason}
}

// release restores previously reserved stock for the given items.
func (e *Engine) release(items []Item) {
	for _, it := range items {
		_ = e.catalog.Restore(it.ProductID, it.Quantity)
	}
}

func structurallyValid(o *Order) bool {
	if strings.TrimSpace(o.ID) == "" || len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
			return false
		}
	}
	return true
}

// Restock adds quantity units to a product's stock. This is the only
// catalog mutation outside the reservation/rollback protocol.
func (e *Engine) Restock(productID string, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		return errors.Wrap(ErrInvalidArgument, "restock quantity must be positive")
	}
	if err := e.catalog.Restore(productID, quantity); err != nil {
		return err
	}
	e.trail.Record("ADMIN", "RESTOCK", "OK",
		"Restocked "+productID+" by "+strconv.Itoa(quantity)+" units")
	return nil
}

// ArchiveDelivered removes DELIVERED orders created before the cutoff from
// the ledger and returns them for the archive store.
func (e *Engine) ArchiveDelivered(cutoff time.Time) []*Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	archived := e.orders.RemoveDelivered(cutoff)
	for _, o := range archived {
		e.trail.Record(o.ID, "ARCHIVE", "OK", "Archived delivered order")
	}
	return archived
}

// FindOrder returns an order by identifier. Callers must treat the result
// as read-only; all mutation goes through engine operations.
func (e *Engine) FindOrder(orderID string) (*Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Find(orderID)
}

// FindProduct returns a catalog product by identifier, read-only.
func (e *Engine) FindProduct(productID string) (*product.Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Find(productID)
}

// Orders returns every active order in intake order, read-only.
func (e *Engine) Orders() []*Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.All()
}

// Products returns a copy of the catalog in insertion order.
func (e *Engine) Products() []product.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Snapshot()
}

// ListByStatus returns orders with the given status, in intake order.
func (e *Engine) ListByStatus(st Status) []*Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.ListByStatus(st)
}

// NextPendingOrderID returns the identifier of the oldest PENDING order.
func (e *Engine) NextPendingOrderID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders.NextPending(); ok {
		return o.ID, true
	}
	return "", false
}

// InvoiceFor returns the invoice issued for an order, if any.
func (e *Engine) InvoiceFor(orderID string) (invoice.Invoice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoices.FindByOrder(NormalizeID(orderID))
}

// ShipmentFor returns the shipment created for an order, if any.
func (e *Engine) ShipmentFor(orderID string) (shipment.Shipment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shipments.FindByOrder(NormalizeID(orderID))
}
