package product

import (
	"strings"

	"github.com/go-faster/errors"
)

// ErrInsufficientStock is returned by Deduct when a product's stock is lower
// than the requested quantity. The fulfillment pipeline checks availability
// before deducting, so callers treat this as an invariant violation.
var ErrInsufficientStock = errors.New("insufficient stock")

// Catalog is the in-memory product table. It preserves insertion order for
// rendering and exports, and indexes products by ID (case-insensitive, as
// stored catalog files historically mixed cases).
//
// The catalog is exclusively owned by the process: it is loaded once at
// startup and mutated in place only through the fulfillment engine's
// reservation/rollback protocol and the restock operation.
type Catalog struct {
	products []*Product
	index    map[string]*Product
}

// NewCatalog builds a catalog from the loaded product records.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		index: make(map[string]*Product, len(products)),
	}
	for i := range products {
		p := products[i]
		c.Put(p)
	}
	return c
}

// Put inserts a product, replacing any existing product with the same ID.
func (c *Catalog) Put(p Product) {
	key := strings.ToUpper(p.ID)
	if existing, ok := c.index[key]; ok {
		*existing = p
		return
	}
	stored := &p
	c.products = append(c.products, stored)
	c.index[key] = stored
}

// Find returns the product with the given ID, or ErrNotFound.
func (c *Catalog) Find(id string) (*Product, error) {
	p, ok := c.index[strings.ToUpper(id)]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "product %q", id)
	}
	return p, nil
}

// All returns the products in insertion order. The returned slice is a copy;
// the products themselves are shared.
func (c *Catalog) All() []*Product {
	out := make([]*Product, len(c.products))
	copy(out, c.products)
	return out
}

// Snapshot returns value copies of all products, for persistence.
func (c *Catalog) Snapshot() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = *p
	}
	return out
}

// Deduct reserves quantity units of the product's stock. Stock never goes
// negative: deducting more than is available fails without mutation.
func (c *Catalog) Deduct(id string, quantity int) error {
	p, err := c.Find(id)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return errors.Wrapf(ErrInsufficientStock, "product %q: have %d, want %d", id, p.Stock, quantity)
	}
	p.Stock -= quantity
	return nil
}

// Restore returns previously deducted stock after a downstream failure.
func (c *Catalog) Restore(id string, quantity int) error {
	p, err := c.Find(id)
	if err != nil {
		return err
	}
	p.Stock += quantity
	return nil
}

// LowStock returns products whose stock is strictly below the threshold,
// in catalog order.
func (c *Catalog) LowStock(threshold int) []*Product {
	var out []*Product
	for _, p := range c.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	return out
}

// FilterByBrand returns products with a matching brand (case-insensitive).
func (c *Catalog) FilterByBrand(brand string) []*Product {
	return c.filter(func(p *Product) bool {
		return strings.EqualFold(p.Brand, brand)
	})
}

// FilterByCategory returns products with a matching category (case-insensitive).
func (c *Catalog) FilterByCategory(category string) []*Product {
	return c.filter(func(p *Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

func (c *Catalog) filter(keep func(*Product) bool) []*Product {
	var out []*Product
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
