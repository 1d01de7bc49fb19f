// Package postgres implements the snapshot store over PostgreSQL, as the
// production alternative to the text-file data directory. Each save
// replaces a table's contents in a single transaction; invoices, shipments
// and the order archive only ever grow.
package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
	"github.com/xenking/orderdesk/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store persists snapshots in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadCatalog reads all products in snapshot order.
func (s *Store) LoadCatalog(ctx context.Context) ([]product.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, brand, name, price, stock FROM products ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Category, &p.Brand, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, errors.Wrap(rows.Err(), "iterate products")
}

// LoadOrders reads all active orders in intake order.
func (s *Store) LoadOrders(ctx context.Context) ([]*order.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, created, payment_mode, items, status, cancel_reason FROM orders ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var (
			o      order.Order
			status string
			items  string
			mode   string
		)
		if err := rows.Scan(&o.ID, &o.CreatedAt, &mode, &items, &status, &o.CancelReason); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		st, err := order.ParseStatus(status)
		if err != nil {
			continue
		}
		o.Status = st
		o.PaymentMode = order.PaymentMode(mode)
		o.Items = order.DecodeItems(items)
		if len(o.Items) == 0 {
			continue
		}
		orders = append(orders, &o)
	}
	return orders, errors.Wrap(rows.Err(), "iterate orders")
}

// LoadInvoices reads all invoices in issuance order.
func (s *Store) LoadInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, total, issued FROM invoices ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query invoices")
	}
	defer rows.Close()

	var invoices []invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(&inv.ID, &inv.OrderID, &inv.Total, &inv.IssuedAt); err != nil {
			return nil, errors.Wrap(err, "scan invoice")
		}
		invoices = append(invoices, inv)
	}
	return invoices, errors.Wrap(rows.Err(), "iterate invoices")
}

// LoadShipments reads all shipments in creation order.
func (s *Store) LoadShipments(ctx context.Context) ([]shipment.Shipment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tracking_id, order_id, status FROM shipments ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query shipments")
	}
	defer rows.Close()

	var shipments []shipment.Shipment
	for rows.Next() {
		var (
			sh     shipment.Shipment
			status string
		)
		if err := rows.Scan(&sh.TrackingID, &sh.OrderID, &status); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		sh.Status = shipment.Status(status)
		shipments = append(shipments, sh)
	}
	return shipments, errors.Wrap(rows.Err(), "iterate shipments")
}

// LoadAdmins reads all admin accounts.
func (s *Store) LoadAdmins(ctx context.Context) ([]auth.Admin, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, pass_hash FROM admins ORDER BY username`)
	if err != nil {
		return nil, errors.Wrap(err, "query admins")
	}
	defer rows.Close()

	var admins []auth.Admin
	for rows.Next() {
		var a auth.Admin
		if err := rows.Scan(&a.Username, &a.PassHash); err != nil {
			return nil, errors.Wrap(err, "scan admin")
		}
		admins = append(admins, a)
	}
	return admins, errors.Wrap(rows.Err(), "iterate admins")
}

// SaveCatalog replaces the products table.
func (s *Store) SaveCatalog(ctx context.Context, products []product.Product) error {
	return s.replace(ctx, "products", func(tx pgx.Tx) error {
		for i, p := range products {
			_, err := tx.Exec(ctx,
				`INSERT INTO products (id, category, brand, name, price, stock, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, p.Category, p.Brand, p.Name, p.Price, p.Stock, i)
			if err != nil {
				return errors.Wrapf(err, "insert product %s", p.ID)
			}
		}
		return nil
	})
}

// SaveOrders replaces the orders table with the active orders.
func (s *Store) SaveOrders(ctx context.Context, orders []*order.Order) error {
	return s.replace(ctx, "orders", func(tx pgx.Tx) error {
		for i, o := range orders {
			_, err := tx.Exec(ctx,
				`INSERT INTO orders (id, created, payment_mode, items, status, cancel_reason, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				o.ID, o.CreatedAt, string(o.PaymentMode), order.EncodeItems(o.Items),
				string(o.Status), o.CancelReason, i)
			if err != nil {
				return errors.Wrapf(err, "insert order %s", o.ID)
			}
		}
		return nil
	})
}

// SaveInvoices replaces the invoices table.
func (s *Store) SaveInvoices(ctx context.Context, invoices []invoice.Invoice) error {
	return s.replace(ctx, "invoices", func(tx pgx.Tx) error {
		for i, inv := range invoices {
			_, err := tx.Exec(ctx,
				`INSERT INTO invoices (id, order_id, total, issued, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				inv.ID, inv.OrderID, inv.Total, inv.IssuedAt, i)
			if err != nil {
				return errors.Wrapf(err, "insert invoice %s", inv.ID)
			}
		}
		return nil
	})
}

// SaveShipments replaces the shipments table.
func (s *Store) SaveShipments(ctx context.Context, shipments []shipment.Shipment) error {
	return s.replace(ctx, "shipments", func(tx pgx.Tx) error {
		for i, sh := range shipments {
			_, err := tx.Exec(ctx,
				`INSERT INTO shipments (tracking_id, order_id, status, position)
				 VALUES ($1, $2, $3, $4)`,
				sh.TrackingID, sh.OrderID, string(sh.Status), i)
			if err != nil {
				return errors.Wrapf(err, "insert shipment %s", sh.TrackingID)
			}
		}
		return nil
	})
}

// SaveAdmins replaces the admins table.
func (s *Store) SaveAdmins(ctx context.Context, admins []auth.Admin) error {
	return s.replace(ctx, "admins", func(tx pgx.Tx) error {
		for _, a := range admins {
			_, err := tx.Exec(ctx,
				`INSERT INTO admins (username, pass_hash) VALUES ($1, $2)`,
				a.Username, a.PassHash)
			if err != nil {
				return errors.Wrapf(err, "insert admin %s", a.Username)
			}
		}
		return nil
	})
}

// AppendArchive inserts archived orders, ignoring ones already archived.
func (s *Store) AppendArchive(ctx context.Context, orders []*order.Order) error {
	for _, o := range orders {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO archived_orders (id, created, payment_mode, items, status, cancel_reason, archived_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO NOTHING`,
			o.ID, o.CreatedAt, string(o.PaymentMode), order.EncodeItems(o.Items),
			string(o.Status), o.CancelReason, time.Now().UTC())
		if err != nil {
			return errors.Wrapf(err, "archive order %s", o.ID)
		}
	}
	return nil
}

// replace truncates a table and refills it inside one transaction.
func (s *Store) replace(ctx context.Context, table string, fill func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return errors.Wrapf(err, "clear %s", table)
	}
	if err := fill(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}
