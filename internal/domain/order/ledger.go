package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const idPrefix = "O"

// Baseline for order serials: the first order of a fresh installation is
// O1001.
const firstOrderSeq = 1001

// Ledger is the in-memory order table. Orders keep their intake order, are
// indexed by identifier (case-insensitive), and receive monotonically
// assigned identifiers that are never reused: the serial resumes above the
// highest identifier observed in the loaded records.
type Ledger struct {
	orders  []*Order
	index   map[string]*Order
	nextSeq int64
}

// NewLedger builds a ledger from previously persisted orders.
func NewLedger(orders []*Order) *Ledger {
	l := &Ledger{
		index:   make(map[string]*Order, len(orders)),
		nextSeq: firstOrderSeq,
	}
	for _, o := range orders {
		l.orders = append(l.orders, o)
		l.index[strings.ToUpper(o.ID)] = o
		if seq, ok := parseOrderSeq(o.ID); ok && seq >= l.nextSeq {
			l.nextSeq = seq + 1
		}
	}
	return l
}

// NextID allocates the next order identifier.
func (l *Ledger) NextID() string {
	id := fmt.Sprintf("%s%d", idPrefix, l.nextSeq)
	l.nextSeq++
	return id
}

// Append adds a new order to the ledger.
func (l *Ledger) Append(o *Order) {
	l.orders = append(l.orders, o)
	l.index[strings.ToUpper(o.ID)] = o
}

// Find returns the order with the given identifier, or ErrNotFound.
// A bare numeric identifier is accepted and normalized ("1001" → "O1001").
func (l *Ledger) Find(id string) (*Order, error) {
	o, ok := l.index[strings.ToUpper(NormalizeID(id))]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	return o, nil
}

// All returns the orders in intake order. The returned slice is a copy; the
// orders themselves are shared.
func (l *Ledger) All() []*Order {
	out := make([]*Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// ListByStatus returns orders with the given status, in intake order.
func (l *Ledger) ListByStatus(st Status) []*Order {
	var out []*Order
	for _, o := range l.orders {
		if o.Status == st {
			out = append(out, o)
		}
	}
	return out
}

// NextPending returns the oldest PENDING order, if any.
func (l *Ledger) NextPending() (*Order, bool) {
	for _, o := range l.orders {
		if o.Status == StatusPending {
			return o, true
		}
	}
	return nil, false
}

// RemoveDelivered removes DELIVERED orders created before the cutoff and
// returns them, preserving intake order. Used by archival.
func (l *Ledger) RemoveDelivered(cutoff time.Time) []*Order {
	var archived []*Order
	remaining := l.orders[:0]
	for _, o := range l.orders {
		if o.Status == StatusDelivered && o.CreatedAt.Before(cutoff) {
			archived = append(archived, o)
			delete(l.index, strings.ToUpper(o.ID))
			continue
		}
		remaining = append(remaining, o)
	}
	l.orders = remaining
	return archived
}

// Len reports the number of orders in the ledger.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// NormalizeID upper-cases an order identifier and prepends the "O" prefix
// when the caller supplied only the numeric part.
func NormalizeID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return id
	}
	if !strings.HasPrefix(id, idPrefix) {
		return idPrefix + id
	}
	return id
}

func parseOrderSeq(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.ToUpper(id), idPrefix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
