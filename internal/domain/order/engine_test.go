package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/payment"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

// --- Helpers ---

type approveAll struct{}

func (approveAll) Authorize(decimal.Decimal) error { return nil }

type declineAll struct{}

func (declineAll) Authorize(decimal.Decimal) error { return payment.ErrDeclined }

func newTestProduct(id string, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		Category: "test",
		Brand:    "Acme",
		Name:     "Widget " + id,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
}

type fixture struct {
	engine    *Engine
	catalog   *product.Catalog
	orders    *Ledger
	invoices  *invoice.Ledger
	shipments *shipment.Ledger
}

func newFixture(auth payment.Authorizer, products ...product.Product) *fixture {
	f := &fixture{
		catalog:   product.NewCatalog(products),
		orders:    NewLedger(nil),
		invoices:  invoice.NewLedger(nil),
		shipments: shipment.NewLedger(nil),
	}
	f.engine = NewEngine(EngineConfig{}, f.catalog, f.orders, f.invoices, f.shipments, auth, nil)
	return f
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Find(id)
	require.NoError(t, err)
	return p.Stock
}

// submitAndAdvance runs an order through intake once.
func (f *fixture) submitAndAdvance(t *testing.T, items ...Item) Result {
	t.Helper()
	o, err := f.engine.Submit(items, PaymentCOD)
	require.NoError(t, err)
	res, err := f.engine.Advance(context.Background(), o.ID)
	require.NoError(t, err)
	return res
}

// --- Submit ---

func TestSubmit_EmptyItems(t *testing.T) {
	f := newFixture(approveAll{})

	_, err := f.engine.Submit(nil, PaymentCOD)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestSubmit_TooManyItems(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "1.00", 100))

	items := make([]Item, DefaultMaxItems+1)
	for i := range items {
		items[i] = Item{ProductID: "P1", Quantity: 1}
	}
	_, err := f.engine.Submit(items, PaymentCOD)
	require.ErrorIs(t, err, ErrTooManyItems)
}

func TestSubmit_SequentialIDs(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "1.00", 100))

	o1, err := f.engine.Submit([]Item{{ProductID: "P1", Quantity: 1}}, PaymentCOD)
	require.NoError(t, err)
	o2, err := f.engine.Submit([]Item{{ProductID: "P1", Quantity: 1}}, PaymentCard)
	require.NoError(t, err)

	assert.Equal(t, "O1001", o1.ID)
	assert.Equal(t, "O1002", o2.ID)
	assert.Equal(t, StatusPending, o1.Status)
	assert.Equal(t, PaymentCard, o2.PaymentMode)
}

// --- Intake pipeline ---

func TestAdvance_HappyPathToDelivered(t *testing.T) {
	f := newFixture(payment.NewModuloAuthorizer(), newTestProduct("P1", "10.00", 5))
	ctx := context.Background()

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 2})
	assert.Equal(t, StatusPacked, res.Status)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 3, f.stock(t, "P1"))

	inv, ok := f.invoices.FindByOrder(res.OrderID)
	require.True(t, ok)
	assert.Equal(t, "INV-000001", inv.ID)
	assert.True(t, decimal.RequireFromString("20.00").Equal(inv.Total))

	res, err := f.engine.Advance(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, res.Status)

	sh, ok := f.shipments.FindByOrder(res.OrderID)
	require.True(t, ok)
	assert.Equal(t, "TRK-00000001", sh.TrackingID)
	assert.Equal(t, shipment.StatusInTransit, sh.Status)

	o, err := f.engine.FindOrder(res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "TRK-00000001", o.TrackingID)

	res, err = f.engine.Advance(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, res.Status)

	res, err = f.engine.Advance(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, res.Status)

	sh, _ = f.shipments.FindByOrder(res.OrderID)
	assert.Equal(t, shipment.StatusDelivered, sh.Status)
}

func TestAdvance_UnknownProduct(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))

	res := f.submitAndAdvance(t,
		Item{ProductID: "P1", Quantity: 1},
		Item{ProductID: "PX", Quantity: 1},
	)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, "Invalid product PX", res.Reason)
	assert.Equal(t, 5, f.stock(t, "P1"))
	assert.Zero(t, f.invoices.Len())
}

func TestAdvance_InventoryShortage(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 1))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 5})
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ReasonInventoryShortage, res.Reason)
	assert.Equal(t, 1, f.stock(t, "P1"))
}

func TestAdvance_PartialShortageLeavesStockUntouched(t *testing.T) {
	f := newFixture(approveAll{},
		newTestProduct("P1", "10.00", 10),
		newTestProduct("P2", "5.00", 1),
	)

	res := f.submitAndAdvance(t,
		Item{ProductID: "P1", Quantity: 2},
		Item{ProductID: "P2", Quantity: 3},
	)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ReasonInventoryShortage, res.Reason)
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Equal(t, 1, f.stock(t, "P2"))
}

func TestAdvance_PaymentDeclinedRollsBackStock(t *testing.T) {
	// 2 x 7.00 = 14.00, divisible by 7.
	f := newFixture(payment.NewModuloAuthorizer(), newTestProduct("P1", "7.00", 5))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 2})
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ReasonPaymentFailed, res.Reason)
	assert.Equal(t, 5, f.stock(t, "P1"))
	assert.Zero(t, f.invoices.Len())
}

func TestAdvance_UnknownOrder(t *testing.T) {
	f := newFixture(approveAll{})

	_, err := f.engine.Advance(context.Background(), "O9999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdvance_TerminalStates(t *testing.T) {
	f := newFixture(declineAll{}, newTestProduct("P1", "10.00", 5))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 1})
	require.Equal(t, StatusCancelled, res.Status)

	res, err := f.engine.Advance(context.Background(), res.OrderID)
	require.ErrorIs(t, err, ErrTerminalState)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ReasonPaymentFailed, res.Reason)
}

func TestAdvance_TerminalDelivered(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))
	ctx := context.Background()

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 1})
	for res.Status != StatusDelivered {
		var err error
		res, err = f.engine.Advance(ctx, res.OrderID)
		require.NoError(t, err)
	}

	_, err := f.engine.Advance(ctx, res.OrderID)
	require.ErrorIs(t, err, ErrTerminalState)
}

// --- Idempotent issuance ---

func TestAdvance_DuplicateInvoiceLeavesPending(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))

	// An invoice for the next order identifier already exists: issuance must
	// refuse, roll the reservation back, and leave the order PENDING.
	_, err := f.invoices.Issue("O1001", decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 2})
	assert.Equal(t, StatusPending, res.Status)
	assert.Contains(t, res.Reason, "invoice")
	assert.Equal(t, 5, f.stock(t, "P1"))
	assert.Equal(t, 1, f.invoices.Len())
}

func TestAdvance_DuplicateShipmentRejected(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 1})
	require.Equal(t, StatusPacked, res.Status)

	_, err := f.shipments.Create(res.OrderID)
	require.NoError(t, err)

	_, err = f.engine.Advance(context.Background(), res.OrderID)
	require.ErrorIs(t, err, shipment.ErrDuplicate)

	o, err := f.engine.FindOrder(res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPacked, o.Status)
}

// --- Retry ---

func TestRetry_AfterRestock(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 1))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 3})
	require.Equal(t, StatusCancelled, res.Status)

	require.NoError(t, f.engine.Restock("P1", 10))

	res, err := f.engine.Retry(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPacked, res.Status)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 8, f.stock(t, "P1"))
}

func TestRetry_NotCancelled(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))

	o, err := f.engine.Submit([]Item{{ProductID: "P1", Quantity: 1}}, PaymentCOD)
	require.NoError(t, err)

	_, err = f.engine.Retry(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrNotCancelled)
}

func TestRetry_StillFailingKeepsSingleReason(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 1))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 3})
	require.Equal(t, StatusCancelled, res.Status)

	for i := 0; i < 3; i++ {
		var err error
		res, err = f.engine.Retry(context.Background(), res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, res.Status)
		assert.Equal(t, ReasonInventoryShortage, res.Reason)
	}
	assert.Equal(t, 1, f.stock(t, "P1"))
	assert.Zero(t, f.invoices.Len())
}

func TestRetry_RepricesAtCurrentPrices(t *testing.T) {
	// First run declines at 7.00; after the price change the retry charges
	// the current price.
	f := newFixture(payment.NewModuloAuthorizer(), newTestProduct("P1", "7.00", 5))

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 1})
	require.Equal(t, StatusCancelled, res.Status)
	require.Equal(t, ReasonPaymentFailed, res.Reason)

	p, err := f.catalog.Find("P1")
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("8.00")

	res, err = f.engine.Retry(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPacked, res.Status)

	inv, ok := f.invoices.FindByOrder(res.OrderID)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("8.00").Equal(inv.Total))
}

// --- Restock ---

func TestRestock_InvalidQuantity(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 5))

	require.ErrorIs(t, f.engine.Restock("P1", 0), ErrInvalidArgument)
	require.ErrorIs(t, f.engine.Restock("P1", -3), ErrInvalidArgument)
	assert.Equal(t, 5, f.stock(t, "P1"))
}

func TestRestock_UnknownProduct(t *testing.T) {
	f := newFixture(approveAll{})

	require.ErrorIs(t, f.engine.Restock("PX", 5), product.ErrNotFound)
}

// --- Archival ---

func TestArchiveDelivered(t *testing.T) {
	f := newFixture(approveAll{}, newTestProduct("P1", "10.00", 50))
	ctx := context.Background()

	res := f.submitAndAdvance(t, Item{ProductID: "P1", Quantity: 1})
	for res.Status != StatusDelivered {
		var err error
		res, err = f.engine.Advance(ctx, res.OrderID)
		require.NoError(t, err)
	}
	delivered := res.OrderID

	pending, err := f.engine.Submit([]Item{{ProductID: "P1", Quantity: 1}}, PaymentCOD)
	require.NoError(t, err)

	archived := f.engine.ArchiveDelivered(time.Now().Add(time.Hour))
	require.Len(t, archived, 1)
	assert.Equal(t, delivered, archived[0].ID)

	_, err = f.engine.FindOrder(delivered)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.engine.FindOrder(pending.ID)
	require.NoError(t, err)
}

// --- Conservation ---

func TestStockConservationAcrossMixedOutcomes(t *testing.T) {
	f := newFixture(payment.NewModuloAuthorizer(), newTestProduct("P1", "3.00", 20))
	ctx := context.Background()

	// 14 x 3.00 = 42.00 and 7 x 3.00 = 21.00 decline (divisible by 7); the
	// others pack.
	reserved := 0
	packed := 0
	for _, qty := range []int{2, 14, 3, 7} {
		o, err := f.engine.Submit([]Item{{ProductID: "P1", Quantity: qty}}, PaymentCOD)
		require.NoError(t, err)
		res, err := f.engine.Advance(ctx, o.ID)
		require.NoError(t, err)
		if res.Status == StatusPacked {
			reserved += qty
			packed++
		}
	}

	assert.Equal(t, 2, packed)
	assert.Equal(t, 20-reserved, f.stock(t, "P1"))
	assert.Equal(t, packed, f.invoices.Len())
}
