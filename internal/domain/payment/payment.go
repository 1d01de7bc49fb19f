// Package payment defines the authorization seam between the fulfillment
// engine and whatever settles the charge. The engine treats the Authorizer
// as an opaque capability; in a production deployment this is where a real
// gateway client is substituted.
package payment

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDeclined is returned by an Authorizer when the charge is refused.
var ErrDeclined = errors.New("payment declined")

// Authorizer decides whether a charge of the given total is approved.
// Implementations must be pure: no catalog or order state may be touched.
type Authorizer interface {
	Authorize(total decimal.Decimal) error
}

// ModuloAuthorizer is the deterministic stand-in rule used until a gateway
// integration exists: it declines any total divisible by its divisor.
type ModuloAuthorizer struct {
	Divisor int64
}

// NewModuloAuthorizer returns the reference authorizer, declining totals
// divisible by 7.
func NewModuloAuthorizer() ModuloAuthorizer {
	return ModuloAuthorizer{Divisor: 7}
}

// Authorize approves the total unless it is a multiple of the divisor
// (a zero total is therefore declined).
func (a ModuloAuthorizer) Authorize(total decimal.Decimal) error {
	if total.Mod(decimal.NewFromInt(a.Divisor)).IsZero() {
		return ErrDeclined
	}
	return nil
}
