// Package dashboard implements the interactive administrative console. It
// renders menus and reads operator input; every state change goes through
// the fulfillment engine, every lookup through the ledgers. The session is
// strictly sequential.
package dashboard

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/audit"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
	"github.com/xenking/orderdesk/internal/importer"
)

// ErrLoginFailed is returned when the operator exhausts login attempts.
var ErrLoginFailed = errors.New("login failed")

const loginAttempts = 3

// Config wires the dashboard to the application state. Catalog and ledgers
// are read directly for display; all mutation goes through Engine.
type Config struct {
	Engine    *order.Engine
	Catalog   *product.Catalog
	Invoices  *invoice.Ledger
	Shipments *shipment.Ledger
	Accounts  *auth.Accounts
	Trail     *audit.Trail
	Importer  *importer.Importer

	// Archive persists orders removed from the ledger by archival.
	Archive func(ctx context.Context, orders []*order.Order) error

	LowStockThreshold int
	NoColor           bool

	In     io.Reader
	Out    io.Writer
	Logger *zap.Logger
}

// Dashboard is one interactive administrative session.
type Dashboard struct {
	cfg      Config
	in       *bufio.Scanner
	out      io.Writer
	lg       *zap.Logger
	color    bool
	lowStock int
	user     string
}

// New creates a Dashboard over the given configuration.
func New(cfg Config) *Dashboard {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dashboard{
		cfg:      cfg,
		in:       bufio.NewScanner(cfg.In),
		out:      cfg.Out,
		lg:       cfg.Logger,
		color:    !cfg.NoColor,
		lowStock: cfg.LowStockThreshold,
	}
}

// Run authenticates the operator and serves the menu until exit or EOF.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.login(); err != nil {
		return err
	}
	d.println("")
	d.println(d.paint(ansiBold, "Welcome, "+d.user+"."))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.printMenu()
		choice, ok := d.prompt("Select")
		if !ok {
			return nil
		}
		if done := d.dispatch(ctx, choice); done {
			d.println("Goodbye.")
			return nil
		}
	}
}

func (d *Dashboard) login() error {
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		user, ok := d.prompt("Username")
		if !ok {
			return ErrLoginFailed
		}
		pass, ok := d.prompt("Password")
		if !ok {
			return ErrLoginFailed
		}
		if err := d.cfg.Accounts.Authenticate(user, pass); err == nil {
			d.user = strings.TrimSpace(user)
			d.lg.Info("operator logged in", zap.String("user", d.user))
			return nil
		}
		d.println(d.paint(ansiRed, "Invalid credentials."))
		d.lg.Warn("login attempt failed", zap.Int("attempt", attempt))
	}
	return ErrLoginFailed
}

func (d *Dashboard) printMenu() {
	d.println("")
	d.println(d.paint(ansiBold, "===== ORDER DESK ====="))
	d.println(" 1. List orders")
	d.println(" 2. Order details")
	d.println(" 3. New order")
	d.println(" 4. Process next pending order")
	d.println(" 5. Advance order")
	d.println(" 6. Retry cancelled order")
	d.println(" 7. Browse products")
	d.println(" 8. Low stock")
	d.println(" 9. Restock product")
	d.println("10. Order report")
	d.println("11. Export report (JSON)")
	d.println("12. Export stock listing")
	d.println("13. Bulk import feed")
	d.println("14. Reorder")
	d.println("15. Archive delivered orders")
	d.println("16. Receipt")
	d.println("17. Audit trail")
	d.println("18. Change password")
	d.println(" 0. Exit")
}

// dispatch runs one menu action and reports whether the session should end.
func (d *Dashboard) dispatch(ctx context.Context, choice string) bool {
	switch strings.TrimSpace(choice) {
	case "0", "q", "exit":
		return true
	case "1":
		d.listOrders()
	case "2":
		d.orderDetails()
	case "3":
		d.newOrder(ctx)
	case "4":
		d.processNext(ctx)
	case "5":
		d.advanceOrder(ctx)
	case "6":
		d.retryOrder(ctx)
	case "7":
		d.browseProducts()
	case "8":
		d.lowStockReport()
	case "9":
		d.restock()
	case "10":
		d.orderReport()
	case "11":
		d.exportReportJSON()
	case "12":
		d.exportStock()
	case "13":
		d.bulkImport(ctx)
	case "14":
		d.reorder(ctx)
	case "15":
		d.archive(ctx)
	case "16":
		d.receipt()
	case "17":
		d.auditTrail()
	case "18":
		d.changePassword()
	default:
		d.println(d.paint(ansiYellow, "Unknown selection."))
	}
	return false
}

// prompt reads one line of input. ok is false on EOF.
func (d *Dashboard) prompt(label string) (string, bool) {
	d.printf("%s: ", label)
	if !d.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(d.in.Text()), true
}

// promptInt reads a positive integer, rejecting everything else.
func (d *Dashboard) promptInt(label string) (int, bool) {
	s, ok := d.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		d.println(d.paint(ansiYellow, "Expected a positive number."))
		return 0, false
	}
	return n, true
}

func (d *Dashboard) reportErr(err error) {
	d.println(d.paint(ansiRed, "Error: "+err.Error()))
}
