package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OTPRateLimiter decide si un email puede pedir otro OTP en la ventana actual.
type OTPRateLimiter interface {
	Allow(ctx context.Context, email string) bool
}

const (
	otpLimiterPrefix  = "mitr:otp:rl:"
	otpLimiterTimeout = 500 * time.Millisecond
)

// La ventana arranca con el primer pedido; los siguientes solo incrementan.
const otpWindowScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisOTPRateLimiter struct {
	logger *zap.Logger
	redis  redisEvaler
	window time.Duration
	max    int64
}

// NewRedisOTPRateLimiter devuelve nil (sin limite) si no hay cliente o max <= 0.
func NewRedisOTPRateLimiter(logger *zap.Logger, client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	return newOTPRateLimiter(logger, client, window, max)
}

func newOTPRateLimiter(logger *zap.Logger, evaler redisEvaler, window time.Duration, max int) *redisOTPRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window < time.Second {
		window = 10 * time.Minute
	}
	return &redisOTPRateLimiter{logger: logger, redis: evaler, window: window, max: int64(max)}
}

// Allow deja pasar el pedido si Redis no responde.
func (l *redisOTPRateLimiter) Allow(ctx context.Context, email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, otpLimiterTimeout)
	defer cancel()

	n, err := l.redis.Eval(ctx, otpWindowScript, []string{otpLimiterPrefix + email}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("otp rate limiter unavailable", zap.String("email", email), zap.Error(err))
		return true
	}
	if n > l.max {
		l.logger.Info("otp request throttled", zap.String("email", email), zap.Int64("attempts", n))
		return false
	}
	return true
}
