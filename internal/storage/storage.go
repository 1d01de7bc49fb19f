// Package storage defines the snapshot persistence contract for the
// fulfillment process: state is loaded once at startup and written back at
// shutdown. Loaders tolerate a missing source and yield an empty set; saves
// have full-overwrite semantics except the order archive, which appends.
package storage

import (
	"context"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

// Store persists snapshots of the in-memory tables.
type Store interface {
	LoadCatalog(ctx context.Context) ([]product.Product, error)
	LoadOrders(ctx context.Context) ([]*order.Order, error)
	LoadInvoices(ctx context.Context) ([]invoice.Invoice, error)
	LoadShipments(ctx context.Context) ([]shipment.Shipment, error)
	LoadAdmins(ctx context.Context) ([]auth.Admin, error)

	SaveCatalog(ctx context.Context, products []product.Product) error
	SaveOrders(ctx context.Context, orders []*order.Order) error
	SaveInvoices(ctx context.Context, invoices []invoice.Invoice) error
	SaveShipments(ctx context.Context, shipments []shipment.Shipment) error
	SaveAdmins(ctx context.Context, admins []auth.Admin) error

	// AppendArchive appends delivered orders removed from the active ledger.
	AppendArchive(ctx context.Context, orders []*order.Order) error
}
