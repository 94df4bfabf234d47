package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"
)

type mockSendGridClient struct {
	last   *mail.SGMailV3
	status int
	body   string
	err    error
}

func (m *mockSendGridClient) SendWithContext(_ context.Context, msg *mail.SGMailV3) (*rest.Response, error) {
	m.last = msg
	if m.err != nil {
		return nil, m.err
	}
	return &rest.Response{StatusCode: m.status, Body: m.body}, nil
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("noreply@mitr.test", "MITR", "user@example.com", verificationSubject, "hola")

	require.True(t, strings.HasPrefix(msg, "From: MITR <noreply@mitr.test>\r\n"))
	require.Contains(t, msg, "To: user@example.com\r\n")
	require.Contains(t, msg, "Subject: Verify your account\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nhola"))

	plain := buildMessage("noreply@mitr.test", "", "user@example.com", "s", "b")
	require.True(t, strings.HasPrefix(plain, "From: noreply@mitr.test\r\n"))
}

func TestTemplates(t *testing.T) {
	expires := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	body := verificationBody("123456", expires)
	require.Contains(t, body, "OTP: 123456")
	require.Contains(t, body, "2024-01-02T03:04:05Z")

	receipt := orderBody(OrderReceipt{OrderID: "o1", Courses: []string{"Go", "Rust"}, Total: 350, PaymentID: "pay_1"})
	require.Contains(t, receipt, "Dear Learner")
	require.Contains(t, receipt, "  - Go\n  - Rust\n")
	require.Contains(t, receipt, "Total paid: 350")
}

func TestSendGridSender(t *testing.T) {
	_, err := NewSendGridSender("", "noreply@mitr.test", "MITR")
	require.Error(t, err)

	t.Run("sends plain text message", func(t *testing.T) {
		client := &mockSendGridClient{status: 202}
		s := &SendGridSender{client: client, from: "noreply@mitr.test", fromName: "MITR"}

		require.NoError(t, s.SendVerificationOTP(context.Background(), "user@example.com", "654321", time.Now()))
		require.Equal(t, verificationSubject, client.last.Subject)
		require.Equal(t, "noreply@mitr.test", client.last.From.Address)
		require.Len(t, client.last.Personalizations, 1)
		require.Equal(t, "user@example.com", client.last.Personalizations[0].To[0].Address)
		require.Len(t, client.last.Content, 1)
		require.Contains(t, client.last.Content[0].Value, "654321")
	})

	t.Run("non 2xx is an error", func(t *testing.T) {
		client := &mockSendGridClient{status: 401, body: "unauthorized"}
		s := &SendGridSender{client: client, from: "noreply@mitr.test"}
		err := s.SendOrderConfirmation(context.Background(), "user@example.com", OrderReceipt{OrderID: "o1"})
		require.ErrorContains(t, err, "401")
	})

	t.Run("transport error", func(t *testing.T) {
		client := &mockSendGridClient{err: errors.New("dial failed")}
		s := &SendGridSender{client: client, from: "noreply@mitr.test"}
		require.Error(t, s.SendOrderConfirmation(context.Background(), "user@example.com", OrderReceipt{}))
	})

	t.Run("empty recipient", func(t *testing.T) {
		client := &mockSendGridClient{status: 202}
		s := &SendGridSender{client: client, from: "noreply@mitr.test"}
		require.Error(t, s.SendVerificationOTP(context.Background(), " ", "1", time.Now()))
		require.Nil(t, client.last)
	})
}

func TestDisabledSender(t *testing.T) {
	s := NewDisabledSender("smtp not configured")
	err := s.SendVerificationOTP(context.Background(), "user@example.com", "1", time.Now())
	require.ErrorContains(t, err, "smtp not configured")
}
