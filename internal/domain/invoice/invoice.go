// Package invoice holds the invoice ledger: derived records created exactly
// once per order that reaches a paid state.
package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when an invoice already exists for an order.
// A duplicate issuance indicates a pipeline re-entrancy bug, not a user error.
var ErrDuplicate = errors.New("invoice already issued for order")

const idPrefix = "INV-"

// Invoice is an immutable billing record for a paid order.
type Invoice struct {
	ID       string
	OrderID  string
	Total    decimal.Decimal
	IssuedAt time.Time
}

// Ledger is the in-memory invoice table. Identifiers are allocated from a
// strictly increasing counter that resumes above the highest identifier
// observed in the loaded records.
type Ledger struct {
	invoices []Invoice
	byOrder  map[string]int
	nextSeq  int64
}

// NewLedger builds a ledger from previously persisted invoices.
func NewLedger(invoices []Invoice) *Ledger {
	l := &Ledger{
		invoices: append([]Invoice(nil), invoices...),
		byOrder:  make(map[string]int, len(invoices)),
		nextSeq:  1,
	}
	for i, inv := range l.invoices {
		l.byOrder[inv.OrderID] = i
		if seq, ok := parseSeq(inv.ID); ok && seq >= l.nextSeq {
			l.nextSeq = seq + 1
		}
	}
	return l
}

// Issue creates the invoice for an order. It fails with ErrDuplicate if one
// already exists for the order identifier.
func (l *Ledger) Issue(orderID string, total decimal.Decimal, issuedAt time.Time) (Invoice, error) {
	if _, ok := l.byOrder[orderID]; ok {
		return Invoice{}, errors.Wrapf(ErrDuplicate, "order %s", orderID)
	}
	inv := Invoice{
		ID:       fmt.Sprintf("%s%06d", idPrefix, l.nextSeq),
		OrderID:  orderID,
		Total:    total,
		IssuedAt: issuedAt,
	}
	l.nextSeq++
	l.byOrder[orderID] = len(l.invoices)
	l.invoices = append(l.invoices, inv)
	return inv, nil
}

// FindByOrder returns the invoice issued for the given order, if any.
func (l *Ledger) FindByOrder(orderID string) (Invoice, bool) {
	i, ok := l.byOrder[orderID]
	if !ok {
		return Invoice{}, false
	}
	return l.invoices[i], true
}

// All returns the invoices in issuance order.
func (l *Ledger) All() []Invoice {
	return append([]Invoice(nil), l.invoices...)
}

// Len reports the number of issued invoices.
func (l *Ledger) Len() int {
	return len(l.invoices)
}

func parseSeq(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
