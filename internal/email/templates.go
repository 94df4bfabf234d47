package email

import (
	"fmt"
	"strings"
	"time"
)

const (
	verificationSubject = "Verify your account"
	orderSubject        = "Courses Purchased! You can start learning."
)

func verificationBody(code string, expiresAt time.Time) string {
	return fmt.Sprintf(`Dear User,

Thank you for choosing MITR Consultancy!

To verify your account, please enter the following One-Time Password (OTP):

OTP: %s

This OTP is exclusively for you and expires at %s UTC.

Best regards,
MITR Consultancy Team
`, code, expiresAt.UTC().Format(time.RFC3339))
}

func orderBody(r OrderReceipt) string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = "Learner"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nThank you for your purchase. Your order %s is confirmed.\n\n", name, r.OrderID)
	for _, c := range r.Courses {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	fmt.Fprintf(&b, "\nTotal paid: %d\nPayment reference: %s\n\nHappy learning!\nMITR Consultancy Team\n", r.Total, r.PaymentID)
	return b.String()
}
