package order

import (
	"strings"

	"github.com/go-faster/errors"
)

// Status is an order's position in the fulfillment lifecycle:
//
//	PENDING → {CANCELLED | PACKED} → SHIPPED → OUT_FOR_DELIVERY → DELIVERED
//
// CANCELLED and DELIVERED are terminal; the only way out of CANCELLED is the
// explicit retry operation, which resets the order to PENDING.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusPacked         Status = "PACKED"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// ErrUnknownStatus is returned when parsing an unrecognized status string.
var ErrUnknownStatus = errors.New("unknown order status")

var statuses = []Status{
	StatusPending,
	StatusPacked,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// ParseStatus parses a status string, ignoring case.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// Terminal reports whether no further advance transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// next returns the successor status on the happy path. PENDING has no static
// successor: the intake pipeline decides between PACKED and CANCELLED.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusPacked:
		return StatusShipped, true
	case StatusShipped:
		return StatusOutForDelivery, true
	case StatusOutForDelivery:
		return StatusDelivered, true
	default:
		return "", false
	}
}
