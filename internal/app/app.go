// Package app wires the application: configuration, snapshot storage, the
// fulfillment engine, and the interactive dashboard.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orderdesk/internal/audit"
	"github.com/xenking/orderdesk/internal/dashboard"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/payment"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
	"github.com/xenking/orderdesk/internal/importer"
	"github.com/xenking/orderdesk/internal/storage"
	"github.com/xenking/orderdesk/internal/storage/postgres"
	"github.com/xenking/orderdesk/internal/storage/textfile"
)

// State is the working set loaded from the snapshot store. The process owns
// it exclusively for the lifetime of the session.
type State struct {
	Catalog   *product.Catalog
	Orders    *order.Ledger
	Invoices  *invoice.Ledger
	Shipments *shipment.Ledger
	Accounts  *auth.Accounts
}

// Run loads state, serves one dashboard session, and persists state on exit.
// It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("storage", cfg.Storage),
		zap.String("data_dir", cfg.DataDir),
	)

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	state, err := LoadState(ctx, store, cfg)
	if err != nil {
		return err
	}
	lg.Info("State loaded",
		zap.Int("products", len(state.Catalog.All())),
		zap.Int("orders", state.Orders.Len()),
		zap.Int("invoices", state.Invoices.Len()),
		zap.Int("shipments", state.Shipments.Len()),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.AuditTrail), 0o755); err != nil {
		return errors.Wrap(err, "create trail dir")
	}
	trail := audit.NewTrail(cfg.AuditTrail, lg)

	engine := order.NewEngine(
		order.EngineConfig{
			MaxItems:       cfg.MaxOrderItems,
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
		},
		state.Catalog,
		state.Orders,
		state.Invoices,
		state.Shipments,
		payment.NewModuloAuthorizer(),
		trail,
	)

	d := dashboard.New(dashboard.Config{
		Engine:            engine,
		Catalog:           state.Catalog,
		Invoices:          state.Invoices,
		Shipments:         state.Shipments,
		Accounts:          state.Accounts,
		Trail:             trail,
		Importer:          importer.New(engine, lg, cfg.ImportDedupe),
		Archive:           store.AppendArchive,
		LowStockThreshold: cfg.LowStockThreshold,
		NoColor:           cfg.NoColor,
		In:                os.Stdin,
		Out:               os.Stdout,
		Logger:            lg,
	})

	runErr := d.Run(ctx)

	// Persist even when the session ended by interrupt: the parent context
	// may already be cancelled.
	if err := SaveState(context.WithoutCancel(ctx), store, state); err != nil {
		lg.Error("Failed to persist state", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	} else {
		lg.Info("State persisted")
	}
	return runErr
}

// OpenStore creates the configured snapshot store. The returned func
// releases backend resources.
func OpenStore(ctx context.Context, cfg *Config) (storage.Store, func(), error) {
	switch cfg.Storage {
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		st, err := textfile.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}
}

// LoadState reads all snapshots and assembles the working set. Tracking
// identifiers are not stored on order records; they are re-stitched from the
// shipment ledger here.
func LoadState(ctx context.Context, store storage.Store, cfg *Config) (*State, error) {
	products, err := store.LoadCatalog(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	orders, err := store.LoadOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	invoices, err := store.LoadInvoices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load invoices")
	}
	shipments, err := store.LoadShipments(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load shipments")
	}
	admins, err := store.LoadAdmins(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load admins")
	}

	state := &State{
		Catalog:   product.NewCatalog(products),
		Orders:    order.NewLedger(orders),
		Invoices:  invoice.NewLedger(invoices),
		Shipments: shipment.NewLedger(shipments),
		Accounts:  auth.NewAccounts(admins, auth.NewHasher(cfg.AdminPepper)),
	}
	for _, sh := range shipments {
		if o, err := state.Orders.Find(sh.OrderID); err == nil {
			o.TrackingID = sh.TrackingID
		}
	}
	return state, nil
}

// SaveState writes all snapshots. The tables are independent, so the writes
// run concurrently.
func SaveState(ctx context.Context, store storage.Store, state *State) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return store.SaveCatalog(ctx, state.Catalog.Snapshot()) })
	g.Go(func() error { return store.SaveOrders(ctx, state.Orders.All()) })
	g.Go(func() error { return store.SaveInvoices(ctx, state.Invoices.All()) })
	g.Go(func() error { return store.SaveShipments(ctx, state.Shipments.All()) })
	g.Go(func() error { return store.SaveAdmins(ctx, state.Accounts.Snapshot()) })
	return g.Wait()
}
