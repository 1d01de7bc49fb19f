package dashboard

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/importer"
	"github.com/xenking/orderdesk/internal/report"
)

func (d *Dashboard) listOrders() {
	filter, ok := d.prompt("Status filter (blank for all)")
	if !ok {
		return
	}
	if filter == "" {
		d.printOrderTable(d.cfg.Engine.Orders())
		return
	}
	st, err := order.ParseStatus(filter)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.printOrderTable(d.cfg.Engine.ListByStatus(st))
}

func (d *Dashboard) orderDetails() {
	id, ok := d.prompt("Order ID")
	if !ok {
		return
	}
	o, err := d.cfg.Engine.FindOrder(id)
	if err != nil {
		d.reportErr(err)
		return
	}

	d.printf("Order %s  %s  %s\n", o.ID, o.CreatedAt.Format("2006-01-02"), d.statusLabel(o.Status))
	d.printf("Payment: %s\n", o.PaymentMode)
	if o.CancelReason != "" {
		d.println("Reason:  " + d.paint(ansiRed, o.CancelReason))
	}
	for _, it := range o.Items {
		name := it.ProductID
		if p, err := d.cfg.Catalog.Find(it.ProductID); err == nil {
			name = p.Name
		}
		d.printf("  %-24s x%d\n", name, it.Quantity)
	}
	if inv, ok := d.cfg.Invoices.FindByOrder(o.ID); ok {
		d.printf("Invoice: %s  total %s\n", inv.ID, inv.Total.StringFixed(2))
	}
	if sh, ok := d.cfg.Shipments.FindByOrder(o.ID); ok {
		d.printf("Shipment: %s  %s\n", sh.TrackingID, sh.Status)
	}
}

func (d *Dashboard) newOrder(ctx context.Context) {
	mode := order.PaymentCOD
	if m, ok := d.prompt("Payment mode (COD/CARD, default COD)"); ok && strings.EqualFold(m, string(order.PaymentCard)) {
		mode = order.PaymentCard
	}

	var items []order.Item
	for {
		pid, ok := d.prompt("Product ID (blank to finish)")
		if !ok || pid == "" {
			break
		}
		if _, err := d.cfg.Catalog.Find(pid); err != nil {
			d.reportErr(err)
			continue
		}
		qty, ok := d.promptInt("Quantity")
		if !ok {
			continue
		}
		items = append(items, order.Item{ProductID: pid, Quantity: qty})
	}

	o, err := d.cfg.Engine.Submit(items, mode)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.println(d.paint(ansiGreen, "Created order "+o.ID))

	if yes, ok := d.prompt("Process now? (y/N)"); ok && strings.EqualFold(yes, "y") {
		d.runAdvance(ctx, o.ID)
	}
}

func (d *Dashboard) processNext(ctx context.Context) {
	id, ok := d.cfg.Engine.NextPendingOrderID()
	if !ok {
		d.println("No pending orders.")
		return
	}
	d.println("Processing " + id)
	d.runAdvance(ctx, id)
}

func (d *Dashboard) advanceOrder(ctx context.Context) {
	id, ok := d.prompt("Order ID")
	if !ok || id == "" {
		return
	}
	d.runAdvance(ctx, id)
}

func (d *Dashboard) runAdvance(ctx context.Context, id string) {
	res, err := d.cfg.Engine.Advance(ctx, id)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.printResult(res)
}

func (d *Dashboard) retryOrder(ctx context.Context) {
	cancelled := d.cfg.Engine.ListByStatus(order.StatusCancelled)
	if len(cancelled) == 0 {
		d.println("No cancelled orders.")
		return
	}
	d.printOrderTable(cancelled)

	id, ok := d.prompt("Order ID to retry")
	if !ok || id == "" {
		return
	}
	res, err := d.cfg.Engine.Retry(ctx, id)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.printResult(res)
}

func (d *Dashboard) printResult(res order.Result) {
	if res.Reason != "" {
		d.println(d.paint(ansiRed, res.OrderID+" -> "+string(res.Status)+": "+res.Reason))
		return
	}
	d.println(d.paint(ansiGreen, res.OrderID+" -> "+string(res.Status)))
}

func (d *Dashboard) browseProducts() {
	products := d.cfg.Catalog.All()
	if brand, ok := d.prompt("Brand filter (blank for all)"); ok && brand != "" {
		products = d.cfg.Catalog.FilterByBrand(brand)
	} else if cat, ok := d.prompt("Category filter (blank for all)"); ok && cat != "" {
		products = d.cfg.Catalog.FilterByCategory(cat)
	}

	if s, ok := d.prompt("Sort by price? (y/N)"); ok && strings.EqualFold(s, "y") {
		sorted := make([]*product.Product, len(products))
		copy(sorted, products)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.LessThan(sorted[j].Price)
		})
		products = sorted
	}
	d.printProductTable(products)
}

func (d *Dashboard) lowStockReport() {
	low := d.cfg.Catalog.LowStock(d.lowStock)
	if len(low) == 0 {
		d.println(d.paint(ansiGreen, "All products sufficiently stocked."))
		return
	}
	d.printProductTable(low)
}

func (d *Dashboard) restock() {
	pid, ok := d.prompt("Product ID")
	if !ok || pid == "" {
		return
	}
	qty, ok := d.promptInt("Quantity to add")
	if !ok {
		return
	}
	if err := d.cfg.Engine.Restock(pid, qty); err != nil {
		d.reportErr(err)
		return
	}
	p, err := d.cfg.Catalog.Find(pid)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.printf("%s now at %d units.\n", p.ID, p.Stock)
}

func (d *Dashboard) orderReport() {
	s := report.Build(d.cfg.Engine.Orders(), d.cfg.Invoices)
	if err := report.WriteText(d.out, s); err != nil {
		d.reportErr(err)
	}
}

func (d *Dashboard) exportReportJSON() {
	path, ok := d.prompt("Output file")
	if !ok || path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		d.reportErr(err)
		return
	}
	defer func() { _ = f.Close() }()

	s := report.Build(d.cfg.Engine.Orders(), d.cfg.Invoices)
	if err := report.WriteJSON(f, s); err != nil {
		d.reportErr(err)
		return
	}
	d.println("Report written to " + path)
}

func (d *Dashboard) exportStock() {
	path, ok := d.prompt("Output file")
	if !ok || path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		d.reportErr(err)
		return
	}
	defer func() { _ = f.Close() }()

	if err := report.WriteStockExport(f, d.cfg.Catalog.Snapshot(), d.lowStock); err != nil {
		d.reportErr(err)
		return
	}
	d.println("Stock listing written to " + path)
}

func (d *Dashboard) bulkImport(ctx context.Context) {
	path, ok := d.prompt("Feed file (.txt or .gz)")
	if !ok || path == "" {
		return
	}
	r, err := importer.Open(path)
	if err != nil {
		d.reportErr(err)
		return
	}
	defer func() { _ = r.Close() }()

	stats, err := d.cfg.Importer.Run(ctx, r)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.printf("Imported %d of %d lines: %d packed, %d cancelled, %d duplicates, %d malformed.\n",
		stats.Imported, stats.Lines, stats.Packed, stats.Cancelled, stats.Duplicates, stats.Malformed)
	d.lg.Info("bulk import finished",
		zap.String("feed", path),
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("malformed", stats.Malformed),
	)
}

func (d *Dashboard) reorder(ctx context.Context) {
	id, ok := d.prompt("Order ID to reorder")
	if !ok || id == "" {
		return
	}
	src, err := d.cfg.Engine.FindOrder(id)
	if err != nil {
		d.reportErr(err)
		return
	}
	o, err := d.cfg.Engine.Submit(append([]order.Item(nil), src.Items...), src.PaymentMode)
	if err != nil {
		d.reportErr(err)
		return
	}
	d.println(d.paint(ansiGreen, "Created order "+o.ID+" from "+src.ID))

	if yes, ok := d.prompt("Process now? (y/N)"); ok && strings.EqualFold(yes, "y") {
		d.runAdvance(ctx, o.ID)
	}
}

func (d *Dashboard) archive(ctx context.Context) {
	days, ok := d.promptInt("Archive delivered orders older than (days)")
	if !ok {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	archived := d.cfg.Engine.ArchiveDelivered(cutoff)
	if len(archived) == 0 {
		d.println("Nothing to archive.")
		return
	}
	if d.cfg.Archive != nil {
		if err := d.cfg.Archive(ctx, archived); err != nil {
			d.reportErr(err)
			return
		}
	}
	d.printf("Archived %d delivered orders.\n", len(archived))
}

func (d *Dashboard) receipt() {
	id, ok := d.prompt("Order ID")
	if !ok || id == "" {
		return
	}
	o, err := d.cfg.Engine.FindOrder(id)
	if err != nil {
		d.reportErr(err)
		return
	}
	inv, okInv := d.cfg.Invoices.FindByOrder(o.ID)
	sh, okSh := d.cfg.Shipments.FindByOrder(o.ID)
	if !okInv || !okSh {
		d.println(d.paint(ansiYellow, "Order has no invoice or shipment yet."))
		return
	}
	if err := report.WriteReceipt(d.out, o, inv, sh, d.cfg.Engine.FindProduct); err != nil {
		d.reportErr(err)
	}
}

func (d *Dashboard) auditTrail() {
	id, ok := d.prompt("Order ID")
	if !ok || id == "" {
		return
	}
	entries, err := d.cfg.Trail.ByOrder(order.NormalizeID(id))
	if err != nil {
		d.reportErr(err)
		return
	}
	if len(entries) == 0 {
		d.println("No trail entries.")
		return
	}
	for _, e := range entries {
		result := e.Result
		if result == "FAIL" {
			result = d.paint(ansiRed, result)
		}
		d.printf("%s  %-10s %-4s %s\n",
			e.Time.Local().Format("2006-01-02 15:04:05"), e.Step, result, e.Message)
	}
}

func (d *Dashboard) changePassword() {
	current, ok := d.prompt("Current password")
	if !ok {
		return
	}
	next, ok := d.prompt("New password")
	if !ok {
		return
	}
	confirm, ok := d.prompt("Confirm new password")
	if !ok {
		return
	}
	if err := d.cfg.Accounts.ChangePassword(d.user, current, next, confirm); err != nil {
		d.reportErr(err)
		return
	}
	d.println(d.paint(ansiGreen, "Password updated."))
	d.lg.Info("password changed", zap.String("user", d.user))
}
