// Package shipment holds the shipment ledger: tracking records created when
// an order first transitions into a shipped state.
package shipment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ErrDuplicate is returned when a shipment already exists for an order.
var ErrDuplicate = errors.New("shipment already created for order")

const trackingPrefix = "TRK-"

// Status mirrors the owning order's progress, though not its exact timing:
// a shipment is created only once the order ships.
type Status string

const (
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
)

// Shipment is a tracking record for a shipped order.
type Shipment struct {
	TrackingID string
	OrderID    string
	Status     Status
}

// Ledger is the in-memory shipment table. Tracking identifiers come from
// their own strictly increasing counter, independent of the order and
// invoice counters, resuming above the highest loaded identifier.
type Ledger struct {
	shipments []Shipment
	byOrder   map[string]int
	nextSeq   int64
}

// NewLedger builds a ledger from previously persisted shipments.
func NewLedger(shipments []Shipment) *Ledger {
	l := &Ledger{
		shipments: append([]Shipment(nil), shipments...),
		byOrder:   make(map[string]int, len(shipments)),
		nextSeq:   1,
	}
	for i, sh := range l.shipments {
		l.byOrder[sh.OrderID] = i
		if seq, ok := parseSeq(sh.TrackingID); ok && seq >= l.nextSeq {
			l.nextSeq = seq + 1
		}
	}
	return l
}

// Create allocates a tracking identifier and records the shipment for an
// order. It fails with ErrDuplicate if the order already has one.
func (l *Ledger) Create(orderID string) (Shipment, error) {
	if _, ok := l.byOrder[orderID]; ok {
		return Shipment{}, errors.Wrapf(ErrDuplicate, "order %s", orderID)
	}
	sh := Shipment{
		TrackingID: fmt.Sprintf("%s%08d", trackingPrefix, l.nextSeq),
		OrderID:    orderID,
		Status:     StatusInTransit,
	}
	l.nextSeq++
	l.byOrder[orderID] = len(l.shipments)
	l.shipments = append(l.shipments, sh)
	return sh, nil
}

// SetStatus updates the shipment status for an order, if a shipment exists.
func (l *Ledger) SetStatus(orderID string, st Status) {
	if i, ok := l.byOrder[orderID]; ok {
		l.shipments[i].Status = st
	}
}

// FindByOrder returns the shipment for the given order, if any.
func (l *Ledger) FindByOrder(orderID string) (Shipment, bool) {
	i, ok := l.byOrder[orderID]
	if !ok {
		return Shipment{}, false
	}
	return l.shipments[i], true
}

// All returns the shipments in creation order.
func (l *Ledger) All() []Shipment {
	return append([]Shipment(nil), l.shipments...)
}

// Len reports the number of shipments.
func (l *Ledger) Len() int {
	return len(l.shipments)
}

func parseSeq(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, trackingPrefix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
