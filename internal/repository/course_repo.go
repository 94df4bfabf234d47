package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitr-backend/internal/domain"
)

// CourseRepository define el contrato de persistencia del catalogo.
type CourseRepository interface {
	Create(ctx context.Context, course domain.Course) error
	GetByID(ctx context.Context, id string) (domain.Course, error)
	List(ctx context.Context, keyword string) ([]domain.Course, error)
	Update(ctx context.Context, course domain.Course) error
	Delete(ctx context.Context, id string) error
	Summaries(ctx context.Context, ids []string) ([]domain.CourseSummary, error)
}

type PgCourseRepository struct {
	pool *pgxpool.Pool
}

func NewPgCourseRepository(pool *pgxpool.Pool) *PgCourseRepository {
	return &PgCourseRepository{pool: pool}
}

func (r *PgCourseRepository) Create(ctx context.Context, course domain.Course) error {
	const query = `
		INSERT INTO courses (id, course_name, title, description, rating, total_enrolled, lessons,
			price, duration, poster_public_id, poster_url, phases, skills_covered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		course.ID,
		course.CourseName,
		course.Title,
		course.Description,
		course.Rating,
		course.TotalEnrolled,
		course.Lessons,
		course.Price,
		course.Duration,
		course.Poster.PublicID,
		course.Poster.URL,
		nonNilPhases(course.Phases),
		nonNilStrings(course.SkillsCovered),
		course.CreatedAt,
	)
	return err
}

func (r *PgCourseRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	const query = `
		SELECT id, course_name, title, description, rating, total_enrolled, lessons, price,
			duration, poster_public_id, poster_url, phases, skills_covered, created_at
		FROM courses
		WHERE id = $1
	`
	var c domain.Course
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.CourseName,
		&c.Title,
		&c.Description,
		&c.Rating,
		&c.TotalEnrolled,
		&c.Lessons,
		&c.Price,
		&c.Duration,
		&c.Poster.PublicID,
		&c.Poster.URL,
		&c.Phases,
		&c.SkillsCovered,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Course{}, err
	}
	return c, nil
}

// List omite el curriculo (phases) para mantener liviana la vista de catalogo.
func (r *PgCourseRepository) List(ctx context.Context, keyword string) ([]domain.Course, error) {
	query := `
		SELECT id, course_name, title, description, rating, total_enrolled, lessons, price,
			duration, poster_public_id, poster_url, skills_covered, created_at
		FROM courses
	`
	args := []any{}
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		query += ` WHERE course_name ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(keyword)+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []domain.Course{}
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(
			&c.ID,
			&c.CourseName,
			&c.Title,
			&c.Description,
			&c.Rating,
			&c.TotalEnrolled,
			&c.Lessons,
			&c.Price,
			&c.Duration,
			&c.Poster.PublicID,
			&c.Poster.URL,
			&c.SkillsCovered,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Update no toca total_enrolled: ese contador solo lo mueve una orden.
func (r *PgCourseRepository) Update(ctx context.Context, course domain.Course) error {
	const query = `
		UPDATE courses SET
			course_name = $2, title = $3, description = $4, rating = $5, lessons = $6, price = $7,
			duration = $8, poster_public_id = $9, poster_url = $10, phases = $11, skills_covered = $12
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		course.ID,
		course.CourseName,
		course.Title,
		course.Description,
		course.Rating,
		course.Lessons,
		course.Price,
		course.Duration,
		course.Poster.PublicID,
		course.Poster.URL,
		nonNilPhases(course.Phases),
		nonNilStrings(course.SkillsCovered),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCourseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Summaries devuelve los cursos existentes en el orden de ids; los ausentes se omiten.
func (r *PgCourseRepository) Summaries(ctx context.Context, ids []string) ([]domain.CourseSummary, error) {
	if len(ids) == 0 {
		return []domain.CourseSummary{}, nil
	}
	const query = `
		SELECT id, course_name, description, poster_public_id, poster_url, price
		FROM courses
		WHERE id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]domain.CourseSummary, len(ids))
	for rows.Next() {
		var s domain.CourseSummary
		if err := rows.Scan(&s.ID, &s.CourseName, &s.Description, &s.Poster.PublicID, &s.Poster.URL, &s.Price); err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderSummaries(ids, byID), nil
}

func orderSummaries(ids []string, byID map[string]domain.CourseSummary) []domain.CourseSummary {
	out := make([]domain.CourseSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNilPhases(p []domain.Phase) []domain.Phase {
	if p == nil {
		return []domain.Phase{}
	}
	return p
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
