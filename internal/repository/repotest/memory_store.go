// Package repotest ofrece repositorios en memoria para pruebas de servicios y
// handlers.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/repository"
)

// MemoryStore guarda usuarios, cursos y ordenes en memoria con las mismas
// restricciones que el esquema de Postgres (email unico, par usuario/curso
// unico, commit atomico de la orden).
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	courses   map[string]domain.Course
	orders    map[string]domain.Order
	purchases map[string][]string

	// FailOrderCommit simula una caida de la base a mitad de la transaccion.
	FailOrderCommit error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		courses:   make(map[string]domain.Course),
		orders:    make(map[string]domain.Order),
		purchases: make(map[string][]string),
	}
}

func (s *MemoryStore) Users() *MemoryUserRepository     { return &MemoryUserRepository{s: s} }
func (s *MemoryStore) Courses() *MemoryCourseRepository { return &MemoryCourseRepository{s: s} }
func (s *MemoryStore) Orders() *MemoryOrderRepository   { return &MemoryOrderRepository{s: s} }

var (
	_ repository.UserRepository   = (*MemoryUserRepository)(nil)
	_ repository.CourseRepository = (*MemoryCourseRepository)(nil)
	_ repository.OrderRepository  = (*MemoryOrderRepository)(nil)
)

type MemoryUserRepository struct{ s *MemoryStore }

func (r *MemoryUserRepository) withPurchases(u domain.User) domain.User {
	u.PurchasedCourses = append([]string{}, r.s.purchases[u.ID]...)
	if u.Education == nil {
		u.Education = []domain.Education{}
	}
	return u
}

func (r *MemoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok || r.emailTaken(user.Email, "") {
		return repository.ErrDuplicate
	}
	user.PurchasedCourses = nil
	r.s.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return r.withPurchases(u), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return r.withPurchases(u), nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *MemoryUserRepository) Update(_ context.Context, user domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicate
	}
	user.OtpCodeHash = current.OtpCodeHash
	user.OtpExpiresAt = current.OtpExpiresAt
	user.CreatedAt = current.CreatedAt
	user.PurchasedCourses = nil
	r.s.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) UpdateOTP(_ context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.OtpCodeHash = otpHash
	u.OtpExpiresAt = &otpExpiresAt
	r.s.users[id] = u
	return nil
}

func (r *MemoryUserRepository) ClearOTP(_ context.Context, id, otpHash string, markVerified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.OtpCodeHash == "" || u.OtpCodeHash != otpHash {
		return pgx.ErrNoRows
	}
	u.OtpCodeHash = ""
	u.OtpExpiresAt = nil
	u.Verified = u.Verified || markVerified
	r.s.users[id] = u
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(domain.User) bool { return true }), nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

func (r *MemoryUserRepository) ListPurchasers(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(u domain.User) bool { return len(r.s.purchases[u.ID]) > 0 }), nil
}

func (r *MemoryUserRepository) SweepExpiredOTP(_ context.Context, now, abandonedBefore time.Time) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var cleared, deleted int64
	for id, u := range r.s.users {
		if u.OtpExpiresAt == nil {
			continue
		}
		abandoned := u.FullName == "" && !u.Verified && len(r.s.purchases[id]) == 0
		switch {
		case abandoned && u.OtpExpiresAt.Before(abandonedBefore):
			delete(r.s.users, id)
			deleted++
		case (u.FullName != "" || u.Verified) && u.OtpExpiresAt.Before(now):
			u.OtpCodeHash = ""
			u.OtpExpiresAt = nil
			r.s.users[id] = u
			cleared++
		}
	}
	return cleared, deleted, nil
}

func (r *MemoryUserRepository) sorted(keep func(domain.User) bool) []domain.User {
	out := []domain.User{}
	for _, u := range r.s.users {
		if keep(u) {
			out = append(out, r.withPurchases(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type MemoryCourseRepository struct{ s *MemoryStore }

func (r *MemoryCourseRepository) Create(_ context.Context, course domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[course.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.courses[course.ID] = course
	return nil
}

func (r *MemoryCourseRepository) GetByID(_ context.Context, id string) (domain.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return domain.Course{}, pgx.ErrNoRows
	}
	return c, nil
}

func (r *MemoryCourseRepository) List(_ context.Context, keyword string) ([]domain.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	out := []domain.Course{}
	for _, c := range r.s.courses {
		if keyword != "" && !strings.Contains(strings.ToLower(c.CourseName), keyword) {
			continue
		}
		c.Phases = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCourseRepository) Update(_ context.Context, course domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.courses[course.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	course.TotalEnrolled = current.TotalEnrolled
	course.CreatedAt = current.CreatedAt
	r.s.courses[course.ID] = course
	return nil
}

func (r *MemoryCourseRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.courses, id)
	return nil
}

func (r *MemoryCourseRepository) Summaries(_ context.Context, ids []string) ([]domain.CourseSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.CourseSummary, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.courses[id]; ok {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}

type MemoryOrderRepository struct{ s *MemoryStore }

func (r *MemoryOrderRepository) CreateWithEnrollment(_ context.Context, order domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailOrderCommit != nil {
		return r.s.FailOrderCommit
	}
	if _, ok := r.s.users[order.UserID]; !ok {
		return pgx.ErrNoRows
	}
	for _, o := range r.s.orders {
		if o.RazorpayPaymentID == order.RazorpayPaymentID {
			return repository.ErrPaymentReused
		}
	}
	owned := make(map[string]bool)
	for _, id := range r.s.purchases[order.UserID] {
		owned[id] = true
	}
	for _, id := range order.CourseIDs {
		if owned[id] {
			return repository.ErrAlreadyPurchased
		}
		if _, ok := r.s.courses[id]; !ok {
			return pgx.ErrNoRows
		}
		owned[id] = true
	}

	order.CourseIDs = append([]string{}, order.CourseIDs...)
	r.s.orders[order.ID] = order
	r.s.purchases[order.UserID] = append(r.s.purchases[order.UserID], order.CourseIDs...)
	for _, id := range order.CourseIDs {
		c := r.s.courses[id]
		c.TotalEnrolled++
		r.s.courses[id] = c
	}
	return nil
}

func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return domain.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (r *MemoryOrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryOrderRepository) List(_ context.Context) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(domain.Order) bool { return true }), nil
}

func (r *MemoryOrderRepository) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.orders), nil
}

func (r *MemoryOrderRepository) sorted(keep func(domain.Order) bool) []domain.Order {
	out := []domain.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
