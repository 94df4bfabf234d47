package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicate        = errors.New("duplicate record")
	ErrAlreadyPurchased = errors.New("course already purchased")
	ErrPaymentReused    = errors.New("payment already used by another order")
)

const (
	pgUniqueViolation     = "23505"
	userCoursesPrimaryKey = "user_courses_pkey"
	orderPaymentUnique    = "orders_razorpay_payment_id_key"
)

func isUniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr, true
	}
	return nil, false
}
