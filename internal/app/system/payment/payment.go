// Package payment talks to the hosted donation checkout.
//
// The browser opens the gateway's checkout overlay for an order we create
// here; on success the gateway hands the browser a payment id and a signature
// which we verify before recording the donation.
package payment

import (
	"context"
	"errors"
)

// Order is a gateway order the checkout overlay pays against.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Confirmation is what the checkout overlay returns after payment.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Checkout is the gateway as the donation flow sees it.
type Checkout interface {
	// KeyID is the public key the overlay is opened with.
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error)
	Verify(c Confirmation) error
}

var (
	// ErrUnavailable means online donations are not configured.
	ErrUnavailable = errors.New("online donations are not configured")
	// ErrBadSignature means a confirmation did not come from the gateway.
	ErrBadSignature = errors.New("payment signature mismatch")
	// ErrInvalidAmount is returned for amounts outside the accepted range.
	ErrInvalidAmount = errors.New("invalid donation amount")
)

// Amount limits, in minor units.
const (
	MinAmount int64 = 100        // 1.00
	MaxAmount int64 = 10_000_000 // 100,000.00
)

// Disabled is a Checkout used when no gateway keys are configured.
type Disabled struct{}

func (Disabled) KeyID() string { return "" }

func (Disabled) CreateOrder(context.Context, int64, string, string) (Order, error) {
	return Order{}, ErrUnavailable
}

func (Disabled) Verify(Confirmation) error { return ErrUnavailable }
