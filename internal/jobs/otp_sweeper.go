package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultAbandonGrace es cuanto espera el barrido antes de borrar una
// identidad que nunca completo el registro.
const DefaultAbandonGrace = time.Hour

// OTPStore es el subconjunto del repositorio de usuarios que usa el barrido.
type OTPStore interface {
	SweepExpiredOTP(ctx context.Context, now, abandonedBefore time.Time) (cleared int64, deleted int64, err error)
}

// OTPSweeper limpia OTP vencidos y elimina identidades abandonadas.
type OTPSweeper struct {
	logger  *zap.Logger
	store   OTPStore
	grace   time.Duration
	timeout time.Duration
	now     func() time.Time
	cron    *cron.Cron
}

func NewOTPSweeper(logger *zap.Logger, store OTPStore, grace time.Duration) *OTPSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grace <= 0 {
		grace = DefaultAbandonGrace
	}
	return &OTPSweeper{
		logger:  logger,
		store:   store,
		grace:   grace,
		timeout: 30 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce ejecuta un barrido.
func (s *OTPSweeper) RunOnce(ctx context.Context) (int64, int64, error) {
	now := s.now()
	cleared, deleted, err := s.store.SweepExpiredOTP(ctx, now, now.Add(-s.grace))
	if err != nil {
		return 0, 0, err
	}
	if cleared > 0 || deleted > 0 {
		s.logger.Info("otp sweep",
			zap.Int64("cleared", cleared),
			zap.Int64("deleted", deleted),
		)
	}
	return cleared, deleted, nil
}

// Start programa el barrido. Un schedule vacio deja el job desactivado.
func (s *OTPSweeper) Start(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		s.logger.Info("otp sweeper disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("otp sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid otp sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("otp sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop espera a que termine el barrido en curso o a que venza ctx.
func (s *OTPSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
