package domain

import "time"

// Order es inmutable una vez creada.
type Order struct {
	ID                string    `json:"_id"`
	UserID            string    `json:"user"`
	CourseIDs         []string  `json:"course"`
	Price             int64     `json:"price"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	CreatedAt         time.Time `json:"createdAt"`
}

type BuyerSummary struct {
	ID           string `json:"_id"`
	FullName     string `json:"full_name"`
	MobileNumber string `json:"mobileNumber"`
}

// OrderDetail es la orden con comprador y cursos poblados.
type OrderDetail struct {
	ID                string          `json:"_id"`
	User              BuyerSummary    `json:"user"`
	Courses           []CourseSummary `json:"course"`
	Price             int64           `json:"price"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	CreatedAt         time.Time       `json:"createdAt"`
}
