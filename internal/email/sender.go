package email

import (
	"context"
	"errors"
	"time"
)

// Sender define la interfaz para envio de correos transaccionales.
type Sender interface {
	SendVerificationOTP(ctx context.Context, toEmail string, code string, expiresAt time.Time) error
	SendOrderConfirmation(ctx context.Context, toEmail string, receipt OrderReceipt) error
}

// OrderReceipt resume una compra para el correo de confirmacion.
type OrderReceipt struct {
	Name      string
	OrderID   string
	Courses   []string
	Total     int64
	PaymentID string
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationOTP(_ context.Context, _ string, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendOrderConfirmation(_ context.Context, _ string, _ OrderReceipt) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
