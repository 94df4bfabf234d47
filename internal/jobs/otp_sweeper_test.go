package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/repository/repotest"
)

type fakeOTPStore struct {
	now, abandonedBefore time.Time
	err                  error
}

func (f *fakeOTPStore) SweepExpiredOTP(_ context.Context, now, abandonedBefore time.Time) (int64, int64, error) {
	f.now = now
	f.abandonedBefore = abandonedBefore
	return 0, 0, f.err
}

func TestOTPSweeper_PassesGraceWindow(t *testing.T) {
	store := &fakeOTPStore{}
	sweeper := NewOTPSweeper(zap.NewNop(), store, 2*time.Hour)
	fixed := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return fixed }

	_, _, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, fixed, store.now)
	require.Equal(t, fixed.Add(-2*time.Hour), store.abandonedBefore)

	store.err = errors.New("db down")
	_, _, err = sweeper.RunOnce(context.Background())
	require.Error(t, err)
}

func TestOTPSweeper_MemoryStore(t *testing.T) {
	store := repotest.NewMemoryStore()
	users := store.Users()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, users.Create(ctx, domain.User{ID: "abandoned", Email: "a@example.com", CreatedAt: now}))
	require.NoError(t, users.UpdateOTP(ctx, "abandoned", "hash", now.Add(-3*time.Hour)))

	require.NoError(t, users.Create(ctx, domain.User{ID: "pending", Email: "p@example.com", CreatedAt: now}))
	require.NoError(t, users.UpdateOTP(ctx, "pending", "hash", now.Add(-time.Minute)))

	require.NoError(t, users.Create(ctx, domain.User{ID: "registered", FullName: "Asha", Verified: true, Email: "r@example.com", CreatedAt: now}))
	require.NoError(t, users.UpdateOTP(ctx, "registered", "hash", now.Add(-time.Minute)))

	require.NoError(t, users.Create(ctx, domain.User{ID: "fresh", FullName: "Ravi", Email: "f@example.com", CreatedAt: now}))
	require.NoError(t, users.UpdateOTP(ctx, "fresh", "hash", now.Add(time.Minute)))

	sweeper := NewOTPSweeper(zap.NewNop(), users, time.Hour)
	sweeper.now = func() time.Time { return now }

	cleared, deleted, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)
	require.Equal(t, int64(1), deleted)

	_, err = users.GetByID(ctx, "abandoned")
	require.Error(t, err)

	pending, err := users.GetByID(ctx, "pending")
	require.NoError(t, err)
	require.NotNil(t, pending.OtpExpiresAt)

	registered, err := users.GetByID(ctx, "registered")
	require.NoError(t, err)
	require.Nil(t, registered.OtpExpiresAt)
	require.Empty(t, registered.OtpCodeHash)

	fresh, err := users.GetByID(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh.OtpExpiresAt)
}

func TestOTPSweeper_Start(t *testing.T) {
	sweeper := NewOTPSweeper(zap.NewNop(), &fakeOTPStore{}, 0)
	require.NoError(t, sweeper.Start(""))
	require.Error(t, sweeper.Start("not a schedule"))

	require.NoError(t, sweeper.Start("@every 1h"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}
