package payment

import (
	"context"
	"errors"
)

var (
	ErrNotCaptured = errors.New("payment not captured")
	ErrUnavailable = errors.New("payment provider unavailable")
	ErrMismatch    = errors.New("payment does not match order total")
)

// Verifier confirma que un id de pago corresponde a un cobro real por amount
// rupias.
type Verifier interface {
	Verify(ctx context.Context, paymentID string, amount int64) error
	// Enabled indica si la verificacion consulta al proveedor.
	Enabled() bool
}

type acceptAll struct{}

// NewAcceptAllVerifier trata el id de pago como opaco.
func NewAcceptAllVerifier() Verifier {
	return acceptAll{}
}

func (acceptAll) Verify(context.Context, string, int64) error { return nil }

func (acceptAll) Enabled() bool { return false }
