package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitr-backend/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	// ClearOTP consume el OTP solo si el hash guardado sigue siendo otpHash;
	// si otra peticion ya lo consumio devuelve pgx.ErrNoRows.
	ClearOTP(ctx context.Context, id, otpHash string, markVerified bool) error
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	ListPurchasers(ctx context.Context) ([]domain.User, error)
	SweepExpiredOTP(ctx context.Context, now, abandonedBefore time.Time) (cleared int64, deleted int64, err error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	u.id, u.full_name, u.email, u.mobile_number, u.country, u.state, u.city, u.pin_code,
	u.education, u.role, u.verified, u.otp_hash, u.otp_expires_at, u.created_at,
	COALESCE((
		SELECT array_agg(uc.course_id ORDER BY uc.purchased_at, uc.course_id)
		FROM user_courses uc WHERE uc.user_id = u.id
	), '{}')
`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.MobileNumber,
		&u.Country,
		&u.State,
		&u.City,
		&u.PinCode,
		&u.Education,
		&u.Role,
		&u.Verified,
		&u.OtpCodeHash,
		&u.OtpExpiresAt,
		&u.CreatedAt,
		&u.PurchasedCourses,
	)
	if err != nil {
		return domain.User{}, err
	}
	if u.Education == nil {
		u.Education = []domain.Education{}
	}
	return u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, full_name, email, mobile_number, country, state, city, pin_code,
			education, role, verified, otp_hash, otp_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	education := user.Education
	if education == nil {
		education = []domain.Education{}
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.MobileNumber,
		user.Country,
		user.State,
		user.City,
		user.PinCode,
		education,
		user.Role,
		user.Verified,
		user.OtpCodeHash,
		user.OtpExpiresAt,
		user.CreatedAt,
	)
	if _, ok := isUniqueViolation(err); ok {
		return ErrDuplicate
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users SET
			full_name = $2, email = $3, mobile_number = $4, country = $5, state = $6,
			city = $7, pin_code = $8, education = $9, role = $10, verified = $11
		WHERE id = $1
	`
	education := user.Education
	if education == nil {
		education = []domain.Education{}
	}
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.MobileNumber,
		user.Country,
		user.State,
		user.City,
		user.PinCode,
		education,
		user.Role,
		user.Verified,
	)
	if _, ok := isUniqueViolation(err); ok {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	const query = `UPDATE users SET otp_hash = $2, otp_expires_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, otpHash, otpExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) ClearOTP(ctx context.Context, id, otpHash string, markVerified bool) error {
	const query = `
		UPDATE users SET otp_hash = '', otp_expires_at = NULL, verified = verified OR $3
		WHERE id = $1 AND otp_hash = $2 AND otp_hash <> ''
	`
	tag, err := r.pool.Exec(ctx, query, id, otpHash, markVerified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u ORDER BY u.created_at DESC`
	return r.queryUsers(ctx, query)
}

func (r *PgUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PgUserRepository) ListPurchasers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u
		WHERE EXISTS (SELECT 1 FROM user_courses uc WHERE uc.user_id = u.id)
		ORDER BY u.created_at DESC`
	return r.queryUsers(ctx, query)
}

func (r *PgUserRepository) SweepExpiredOTP(ctx context.Context, now, abandonedBefore time.Time) (int64, int64, error) {
	var cleared, deleted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM users u
			WHERE u.full_name = '' AND NOT u.verified
			  AND u.otp_expires_at IS NOT NULL AND u.otp_expires_at < $1
			  AND NOT EXISTS (SELECT 1 FROM user_courses uc WHERE uc.user_id = u.id)
			  AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)
		`, abandonedBefore)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `
			UPDATE users SET otp_hash = '', otp_expires_at = NULL
			WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $1
			  AND (full_name <> '' OR verified)
		`, now)
		if err != nil {
			return err
		}
		cleared = tag.RowsAffected()
		return nil
	})
	return cleared, deleted, err
}

func (r *PgUserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
