package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender envia correos con la API v3 de SendGrid.
type SendGridSender struct {
	client   sendGridClient
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) (*SendGridSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("sendgrid from is required")
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SendGridSender) SendVerificationOTP(ctx context.Context, toEmail string, code string, expiresAt time.Time) error {
	return s.send(ctx, toEmail, verificationSubject, verificationBody(code, expiresAt))
}

func (s *SendGridSender) SendOrderConfirmation(ctx context.Context, toEmail string, receipt OrderReceipt) error {
	return s.send(ctx, toEmail, orderSubject, orderBody(receipt))
}

func (s *SendGridSender) send(ctx context.Context, toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	msg := mail.NewV3MailInit(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail("", toEmail),
		mail.NewContent("text/plain", body),
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}
