package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitr-backend/internal/domain"
)

// OrderRepository persiste ordenes. CreateWithEnrollment registra la orden, la
// lista de comprados y los contadores de inscripcion como una sola unidad.
type OrderRepository interface {
	CreateWithEnrollment(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Count(ctx context.Context) (int, error)
}

type PgOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPgOrderRepository(pool *pgxpool.Pool) *PgOrderRepository {
	return &PgOrderRepository{pool: pool}
}

func (r *PgOrderRepository) CreateWithEnrollment(ctx context.Context, order domain.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, course_ids, price, razorpay_payment_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, order.UserID, order.CourseIDs, order.Price, order.RazorpayPaymentID, order.CreatedAt)
		if pgErr, ok := isUniqueViolation(err); ok && pgErr.ConstraintName == orderPaymentUnique {
			return ErrPaymentReused
		}
		if err != nil {
			return err
		}

		for _, courseID := range order.CourseIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_courses (user_id, course_id, purchased_at)
				VALUES ($1, $2, $3)
			`, order.UserID, courseID, order.CreatedAt)
			if pgErr, ok := isUniqueViolation(err); ok && pgErr.ConstraintName == userCoursesPrimaryKey {
				return ErrAlreadyPurchased
			}
			if err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `UPDATE courses SET total_enrolled = total_enrolled + 1 WHERE id = $1`, courseID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return pgx.ErrNoRows
			}
		}
		return nil
	})
}

const orderColumns = `id, user_id, course_ids, price, razorpay_payment_id, created_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.CourseIDs, &o.Price, &o.RazorpayPaymentID, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *PgOrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *PgOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PgOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *PgOrderRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	return n, err
}

func (r *PgOrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
