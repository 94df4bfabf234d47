package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/email"
	"mitr-backend/internal/payment"
	"mitr-backend/internal/repository"
)

// OrderService registra compras. La orden, la lista de comprados y los
// contadores de inscripcion se persisten en una sola transaccion.
type OrderService struct {
	logger   *zap.Logger
	orders   repository.OrderRepository
	courses  repository.CourseRepository
	users    repository.UserRepository
	sender   email.Sender
	verifier payment.Verifier
	now      func() time.Time
}

func NewOrderService(
	logger *zap.Logger,
	orders repository.OrderRepository,
	courses repository.CourseRepository,
	users repository.UserRepository,
	sender email.Sender,
	verifier payment.Verifier,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if verifier == nil {
		verifier = payment.NewAcceptAllVerifier()
	}
	return &OrderService{
		logger:   logger,
		orders:   orders,
		courses:  courses,
		users:    users,
		sender:   sender,
		verifier: verifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateOrderInput struct {
	UserID    string
	CourseIDs []string
	PaymentID string
}

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if len(in.CourseIDs) == 0 {
		return domain.Order{}, fmt.Errorf("%w: enter valid course ids", ErrInvalidInput)
	}
	paymentID := strings.TrimSpace(in.PaymentID)
	if paymentID == "" {
		return domain.Order{}, fmt.Errorf("%w: razorpay_payment_id is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(in.CourseIDs))
	courseIDs := make([]string, 0, len(in.CourseIDs))
	for _, raw := range in.CourseIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return domain.Order{}, fmt.Errorf("%w: enter valid course ids", ErrInvalidInput)
		}
		if seen[id] {
			return domain.Order{}, fmt.Errorf("%w: course %s listed more than once", ErrInvalidInput, id)
		}
		seen[id] = true
		courseIDs = append(courseIDs, id)
	}

	buyer, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, ErrUserNotFound
		}
		return domain.Order{}, err
	}

	courses := make([]domain.Course, 0, len(courseIDs))
	for _, id := range courseIDs {
		course, err := s.courses.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Order{}, fmt.Errorf("%w: course with id %s", ErrCourseNotFound, id)
			}
			return domain.Order{}, err
		}
		courses = append(courses, course)
	}

	var total int64
	for _, course := range courses {
		if buyer.HasPurchased(course.ID) {
			return domain.Order{}, fmt.Errorf("%w: course with id %s", ErrAlreadyPurchased, course.ID)
		}
		total += course.Price
	}

	if s.verifier.Enabled() {
		if err := s.verifier.Verify(ctx, paymentID, total); err != nil {
			return domain.Order{}, err
		}
	}

	order := domain.Order{
		ID:                uuid.NewString(),
		UserID:            buyer.ID,
		CourseIDs:         courseIDs,
		Price:             total,
		RazorpayPaymentID: paymentID,
		CreatedAt:         s.now(),
	}
	if err := s.orders.CreateWithEnrollment(ctx, order); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentReused):
			return domain.Order{}, fmt.Errorf("%w: razorpay_payment_id %s already used", ErrInvalidInput, paymentID)
		case errors.Is(err, repository.ErrAlreadyPurchased):
			return domain.Order{}, fmt.Errorf("%w: concurrent purchase detected", ErrAlreadyPurchased)
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Order{}, fmt.Errorf("%w: course removed during checkout", ErrCourseNotFound)
		}
		return domain.Order{}, err
	}

	s.notify(ctx, buyer, order, courses)
	return order, nil
}

// notify es best-effort: la compra ya quedo registrada.
func (s *OrderService) notify(ctx context.Context, buyer domain.User, order domain.Order, courses []domain.Course) {
	if s.sender == nil {
		return
	}
	names := make([]string, 0, len(courses))
	for _, c := range courses {
		names = append(names, c.CourseName)
	}
	receipt := email.OrderReceipt{
		Name:      buyer.FullName,
		OrderID:   order.ID,
		Courses:   names,
		Total:     order.Price,
		PaymentID: order.RazorpayPaymentID,
	}
	if err := s.sender.SendOrderConfirmation(ctx, buyer.Email, receipt); err != nil {
		s.logger.Warn("order confirmation not sent",
			zap.String("order_id", order.ID),
			zap.String("user_id", buyer.ID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll devuelve todas las ordenes con comprador y cursos poblados.
func (s *OrderService) ListAll(ctx context.Context) ([]domain.OrderDetail, int, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.orders.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	buyers := make(map[string]domain.BuyerSummary)
	details := make([]domain.OrderDetail, 0, len(orders))
	for _, o := range orders {
		detail, err := s.populate(ctx, o, buyers)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, detail)
	}
	return details, count, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.OrderDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OrderDetail{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderDetail{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return domain.OrderDetail{}, err
	}
	return s.populate(ctx, order, make(map[string]domain.BuyerSummary))
}

func (s *OrderService) populate(ctx context.Context, o domain.Order, buyers map[string]domain.BuyerSummary) (domain.OrderDetail, error) {
	buyer, ok := buyers[o.UserID]
	if !ok {
		u, err := s.users.GetByID(ctx, o.UserID)
		switch {
		case err == nil:
			buyer = domain.BuyerSummary{ID: u.ID, FullName: u.FullName, MobileNumber: u.MobileNumber}
		case errors.Is(err, pgx.ErrNoRows):
			buyer = domain.BuyerSummary{ID: o.UserID}
		default:
			return domain.OrderDetail{}, err
		}
		buyers[o.UserID] = buyer
	}
	summaries, err := s.courses.Summaries(ctx, o.CourseIDs)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return domain.OrderDetail{
		ID:                o.ID,
		User:              buyer,
		Courses:           summaries,
		Price:             o.Price,
		RazorpayPaymentID: o.RazorpayPaymentID,
		CreatedAt:         o.CreatedAt,
	}, nil
}
