package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultRazorpayBaseURL = "https://api.razorpay.com"

	razorpayCurrency = "INR"
	// Razorpay expresa los montos en paise.
	paisePerRupee = 100
)

// RazorpayVerifier consulta GET /v1/payments/{id} con autenticacion basica.
type RazorpayVerifier struct {
	logger *zap.Logger
	client *resty.Client
	keyID  string
}

type razorpayPayment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewRazorpayVerifier(logger *zap.Logger, baseURL, keyID, keySecret string) (*RazorpayVerifier, error) {
	if strings.TrimSpace(keyID) == "" || strings.TrimSpace(keySecret) == "" {
		return nil, fmt.Errorf("razorpay credentials are required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRazorpayBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &RazorpayVerifier{logger: logger, client: client, keyID: keyID}, nil
}

func (v *RazorpayVerifier) Enabled() bool { return true }

func (v *RazorpayVerifier) KeyID() string { return v.keyID }

func (v *RazorpayVerifier) Verify(ctx context.Context, paymentID string, amount int64) error {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return fmt.Errorf("%w: empty payment id", ErrNotCaptured)
	}

	var payload razorpayPayment
	resp, err := v.client.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetResult(&payload).
		Get("/v1/payments/{id}")
	if err != nil {
		v.logger.Warn("razorpay request failed", zap.String("payment_id", paymentID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: payment %s not found", ErrNotCaptured, paymentID)
	case resp.StatusCode() != http.StatusOK:
		v.logger.Warn("razorpay unexpected status",
			zap.String("payment_id", paymentID),
			zap.Int("status", resp.StatusCode()),
		)
		return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode())
	}

	switch payload.Status {
	case "captured", "authorized":
	default:
		return fmt.Errorf("%w: payment %s is %q", ErrNotCaptured, paymentID, payload.Status)
	}

	if payload.Currency != "" && !strings.EqualFold(payload.Currency, razorpayCurrency) {
		return fmt.Errorf("%w: payment %s is in %s", ErrMismatch, paymentID, payload.Currency)
	}
	if payload.Amount != amount*paisePerRupee {
		v.logger.Warn("razorpay amount mismatch",
			zap.String("payment_id", paymentID),
			zap.Int64("paid_paise", payload.Amount),
			zap.Int64("expected_paise", amount*paisePerRupee),
		)
		return fmt.Errorf("%w: payment %s", ErrMismatch, paymentID)
	}
	return nil
}
