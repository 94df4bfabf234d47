package service

import (
	"errors"

	"mitr-backend/internal/payment"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrUserNotFound       = errors.New("user not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateIdentity  = errors.New("user with this email already exists")
	ErrAlreadyPurchased   = errors.New("course already purchased")
	ErrOTPInvalid         = errors.New("invalid otp or otp expired")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrStorageFailure     = errors.New("poster storage failed")
	ErrPaymentNotCaptured = payment.ErrNotCaptured
	ErrPaymentUnavailable = payment.ErrUnavailable
	ErrPaymentMismatch    = payment.ErrMismatch
	ErrRateLimited        = errors.New("rate limited")
	ErrForbidden          = errors.New("forbidden")
)
