// Package textfile implements the snapshot store over plain text record
// files in a data directory. A missing file is not an error: loaders yield
// an empty set, and the files appear on first save.
package textfile

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
	"github.com/xenking/orderdesk/internal/storage"
)

const (
	productsFile  = "products.txt"
	ordersFile    = "orders.txt"
	invoicesFile  = "invoices.txt"
	shipmentsFile = "shipments.txt"
	adminsFile    = "admins.txt"
	archiveFile   = "archive_orders.txt"
)

var _ storage.Store = (*Store)(nil)

// Store reads and writes snapshot record files under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadCatalog reads products.txt. Malformed records are skipped.
func (s *Store) LoadCatalog(_ context.Context) ([]product.Product, error) {
	var products []product.Product
	err := s.readLines(productsFile, func(line string) {
		if p, ok := decodeProduct(line); ok {
			products = append(products, p)
		}
	})
	return products, err
}

// LoadOrders reads orders.txt. Malformed records are skipped.
func (s *Store) LoadOrders(_ context.Context) ([]*order.Order, error) {
	var orders []*order.Order
	err := s.readLines(ordersFile, func(line string) {
		if o, ok := decodeOrder(line); ok {
			orders = append(orders, o)
		}
	})
	return orders, err
}

// LoadInvoices reads invoices.txt.
func (s *Store) LoadInvoices(_ context.Context) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	err := s.readLines(invoicesFile, func(line string) {
		if inv, ok := decodeInvoice(line); ok {
			invoices = append(invoices, inv)
		}
	})
	return invoices, err
}

// LoadShipments reads shipments.txt.
func (s *Store) LoadShipments(_ context.Context) ([]shipment.Shipment, error) {
	var shipments []shipment.Shipment
	err := s.readLines(shipmentsFile, func(line string) {
		if sh, ok := decodeShipment(line); ok {
			shipments = append(shipments, sh)
		}
	})
	return shipments, err
}

// LoadAdmins reads admins.txt.
func (s *Store) LoadAdmins(_ context.Context) ([]auth.Admin, error) {
	var admins []auth.Admin
	err := s.readLines(adminsFile, func(line string) {
		if a, ok := decodeAdmin(line); ok {
			admins = append(admins, a)
		}
	})
	return admins, err
}

// SaveCatalog overwrites products.txt.
func (s *Store) SaveCatalog(_ context.Context, products []product.Product) error {
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = encodeProduct(p)
	}
	return s.writeLines(productsFile, lines)
}

// SaveOrders overwrites orders.txt with the active (non-archived) orders.
func (s *Store) SaveOrders(_ context.Context, orders []*order.Order) error {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = encodeOrder(o)
	}
	return s.writeLines(ordersFile, lines)
}

// SaveInvoices overwrites invoices.txt. Invoices are immutable, so a full
// rewrite always produces the same prefix plus any new records.
func (s *Store) SaveInvoices(_ context.Context, invoices []invoice.Invoice) error {
	lines := make([]string, len(invoices))
	for i, inv := range invoices {
		lines[i] = encodeInvoice(inv)
	}
	return s.writeLines(invoicesFile, lines)
}

// SaveShipments overwrites shipments.txt.
func (s *Store) SaveShipments(_ context.Context, shipments []shipment.Shipment) error {
	lines := make([]string, len(shipments))
	for i, sh := range shipments {
		lines[i] = encodeShipment(sh)
	}
	return s.writeLines(shipmentsFile, lines)
}

// SaveAdmins overwrites admins.txt.
func (s *Store) SaveAdmins(_ context.Context, admins []auth.Admin) error {
	lines := make([]string, len(admins))
	for i, a := range admins {
		lines[i] = encodeAdmin(a)
	}
	return s.writeLines(adminsFile, lines)
}

// AppendArchive appends archived orders to archive_orders.txt.
func (s *Store) AppendArchive(_ context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.path(archiveFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, o := range orders {
		if _, err := w.WriteString(encodeOrder(o) + "\n"); err != nil {
			return errors.Wrap(err, "append archive")
		}
	}
	return w.Flush()
}

func (s *Store) readLines(name string, fn func(line string)) error {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "open %s", name)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			fn(line)
		}
	}
	return errors.Wrapf(sc.Err(), "scan %s", name)
}

// writeLines rewrites a record file atomically: write to a temp file in the
// same directory, then rename over the target.
func (s *Store) writeLines(name string, lines []string) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", name)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = tmp.Close()
			return errors.Wrapf(err, "write %s", name)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "flush %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	return errors.Wrapf(os.Rename(tmpName, s.path(name)), "replace %s", name)
}
