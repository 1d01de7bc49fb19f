// Command order-import ingests bulk order feeds outside an interactive
// session, for nightly batches. Feeds are line-oriented text files,
// optionally gzip-compressed, each line Date|Items[|PaymentMode].
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/app"
	"github.com/xenking/orderdesk/internal/audit"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/payment"
	"github.com/xenking/orderdesk/internal/importer"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "data", "directory for snapshot and trail files")
		backend     = flag.String("storage", "file", "snapshot backend: file or postgres")
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL when storage=postgres")
		trailPath   = flag.String("audit-trail", "", "audit trail file (default <data-dir>/audit_trail.txt)")
		dedupe      = flag.Uint("dedupe", importer.DefaultDedupeCapacity, "duplicate filter capacity")
		maxItems    = flag.Int("max-order-items", order.DefaultMaxItems, "maximum line items per order")
	)
	flag.Parse()

	lg := slog.New(slog.NewTextHandler(os.Stderr, nil))

	feeds := flag.Args()
	if len(feeds) == 0 {
		fmt.Fprintln(os.Stderr, "usage: order-import [flags] feed.txt [feed2.txt.gz ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := &app.Config{
		DataDir:      *dataDir,
		Storage:      *backend,
		DatabaseURL:  *databaseURL,
		AuditTrail:   *trailPath,
		ImportDedupe: *dedupe,
	}
	cfg.ApplyDefaults()

	if err := run(ctx, lg, cfg, *maxItems, feeds); err != nil {
		lg.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *slog.Logger, cfg *app.Config, maxItems int, feeds []string) error {
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	state, err := app.LoadState(ctx, store, cfg)
	if err != nil {
		return err
	}

	trail := audit.NewTrail(cfg.AuditTrail, zap.NewNop())
	engine := order.NewEngine(
		order.EngineConfig{MaxItems: maxItems},
		state.Catalog, state.Orders, state.Invoices, state.Shipments,
		payment.NewModuloAuthorizer(), trail,
	)

	im := importer.New(engine, zap.NewNop(), cfg.ImportDedupe)
	for _, feed := range feeds {
		r, err := importer.Open(feed)
		if err != nil {
			return err
		}
		stats, err := im.Run(ctx, r)
		_ = r.Close()
		if err != nil {
			return err
		}
		lg.Info("feed processed",
			"feed", feed,
			"lines", stats.Lines,
			"imported", stats.Imported,
			"packed", stats.Packed,
			"cancelled", stats.Cancelled,
			"duplicates", stats.Duplicates,
			"malformed", stats.Malformed,
		)
	}

	if err := app.SaveState(context.WithoutCancel(ctx), store, state); err != nil {
		return err
	}
	lg.Info("state persisted", "orders", state.Orders.Len())
	return nil
}
