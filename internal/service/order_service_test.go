package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/payment"
	"mitr-backend/internal/repository/repotest"
)

type mockVerifier struct {
	err     error
	calls   []string
	amounts []int64
}

func (m *mockVerifier) Verify(_ context.Context, paymentID string, amount int64) error {
	m.calls = append(m.calls, paymentID)
	m.amounts = append(m.amounts, amount)
	return m.err
}

func (m *mockVerifier) Enabled() bool { return true }

type orderFixture struct {
	store  *repotest.MemoryStore
	sender *mockEmailSender
	svc    *OrderService
}

func newOrderFixture(t *testing.T, verifier payment.Verifier) orderFixture {
	t.Helper()
	store := repotest.NewMemoryStore()
	sender := &mockEmailSender{}
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Users().Create(ctx, domain.User{ID: "buyer", FullName: "Asha", Email: "asha@example.com", MobileNumber: "9876543210", Role: domain.RoleUser, Verified: true, CreatedAt: now}))
	require.NoError(t, store.Courses().Create(ctx, domain.Course{ID: "A", CourseName: "Web Development", Price: 100, CreatedAt: now}))
	require.NoError(t, store.Courses().Create(ctx, domain.Course{ID: "B", CourseName: "Data Science", Price: 250, CreatedAt: now}))

	svc := NewOrderService(zap.NewNop(), store.Orders(), store.Courses(), store.Users(), sender, verifier)
	return orderFixture{store: store, sender: sender, svc: svc}
}

func (f orderFixture) enrolled(t *testing.T, id string) int {
	t.Helper()
	c, err := f.store.Courses().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.TotalEnrolled
}

func (f orderFixture) purchased(t *testing.T) []string {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), "buyer")
	require.NoError(t, err)
	return u.PurchasedCourses
}

func TestOrderServiceCreate_TotalsAndEnrollment(t *testing.T) {
	f := newOrderFixture(t, nil)

	order, err := f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "B"}, PaymentID: "pay_1"})
	require.NoError(t, err)
	require.Equal(t, int64(350), order.Price)
	require.Equal(t, []string{"A", "B"}, order.CourseIDs)
	require.Equal(t, "pay_1", order.RazorpayPaymentID)

	require.ElementsMatch(t, []string{"A", "B"}, f.purchased(t))
	require.Equal(t, 1, f.enrolled(t, "A"))
	require.Equal(t, 1, f.enrolled(t, "B"))

	require.Len(t, f.sender.receipts, 1)
	require.Equal(t, int64(350), f.sender.receipts[0].Total)
	require.Equal(t, []string{"Web Development", "Data Science"}, f.sender.receipts[0].Courses)
}

func TestOrderServiceCreate_AlreadyPurchasedLeavesStateUnchanged(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A"}, PaymentID: "pay_1"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"B", "A"}, PaymentID: "pay_2"})
	require.ErrorIs(t, err, ErrAlreadyPurchased)
	require.Contains(t, err.Error(), "A")

	require.Equal(t, []string{"A"}, f.purchased(t))
	require.Equal(t, 1, f.enrolled(t, "A"))
	require.Equal(t, 0, f.enrolled(t, "B"))
	orders, err := f.svc.ListMine(ctx, "buyer")
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestOrderServiceCreate_InputErrors(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", PaymentID: "pay_1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A"}})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "A"}, PaymentID: "pay_1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "ghost"}, PaymentID: "pay_1"})
	require.ErrorIs(t, err, ErrCourseNotFound)
	require.Contains(t, err.Error(), "ghost")

	require.Empty(t, f.purchased(t))
	require.Equal(t, 0, f.enrolled(t, "A"))
}

func TestOrderServiceCreate_CommitFailureIsAllOrNothing(t *testing.T) {
	f := newOrderFixture(t, nil)
	f.store.FailOrderCommit = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "B"}, PaymentID: "pay_1"})
	require.Error(t, err)

	require.Empty(t, f.purchased(t))
	require.Equal(t, 0, f.enrolled(t, "A"))
	require.Empty(t, f.sender.receipts)
}

func TestOrderServiceCreate_NotificationFailureKeepsPurchase(t *testing.T) {
	f := newOrderFixture(t, nil)
	f.sender.err = errors.New("smtp down")

	order, err := f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"B"}, PaymentID: "pay_1"})
	require.NoError(t, err)
	require.Equal(t, int64(250), order.Price)
	require.Equal(t, []string{"B"}, f.purchased(t))
}

func TestOrderServiceCreate_PaymentVerification(t *testing.T) {
	verifier := &mockVerifier{err: payment.ErrNotCaptured}
	f := newOrderFixture(t, verifier)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A"}, PaymentID: "pay_bad"})
	require.ErrorIs(t, err, ErrPaymentNotCaptured)
	require.Equal(t, []string{"pay_bad"}, verifier.calls)
	require.Empty(t, f.purchased(t))

	verifier.err = nil
	_, err = f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "B"}, PaymentID: "pay_ok"})
	require.NoError(t, err)
	require.Equal(t, []int64{100, 350}, verifier.amounts)
}

func TestOrderServiceCreate_PaymentAmountMismatch(t *testing.T) {
	verifier := &mockVerifier{err: payment.ErrMismatch}
	f := newOrderFixture(t, verifier)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{UserID: "buyer", CourseIDs: []string{"B"}, PaymentID: "pay_small"})
	require.ErrorIs(t, err, ErrPaymentMismatch)
	require.Empty(t, f.purchased(t))
	require.Equal(t, 0, f.enrolled(t, "B"))
}

func TestOrderServiceCreate_PaymentIDSingleUse(t *testing.T) {
	f := newOrderFixture(t, &mockVerifier{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A"}, PaymentID: "pay_1"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"B"}, PaymentID: "pay_1"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, []string{"A"}, f.purchased(t))
	require.Equal(t, 0, f.enrolled(t, "B"))

	orders, err := f.svc.ListMine(ctx, "buyer")
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestOrderServiceListAllAndGet(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"A", "B"}, PaymentID: "pay_1"})
	require.NoError(t, err)

	details, count, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, details, 1)
	require.Equal(t, "Asha", details[0].User.FullName)
	require.Equal(t, "9876543210", details[0].User.MobileNumber)
	require.Len(t, details[0].Courses, 2)
	require.Equal(t, "Web Development", details[0].Courses[0].CourseName)

	detail, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(350), detail.Price)

	_, err = f.svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUserServicePurchasedCourses(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, CreateOrderInput{UserID: "buyer", CourseIDs: []string{"B"}, PaymentID: "pay_1"})
	require.NoError(t, err)

	users := NewUserService(zap.NewNop(), f.store.Users(), f.store.Courses(), f.sender, UserServiceOptions{})
	courses, err := users.ListPurchasedCourses(ctx, "buyer")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "Data Science", courses[0].CourseName)

	purchasers, err := users.ListPurchasers(ctx)
	require.NoError(t, err)
	require.Len(t, purchasers, 1)
	require.Equal(t, "buyer", purchasers[0].User.ID)
	require.Len(t, purchasers[0].PurchasedCourses, 1)
}
