package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mitr-backend/internal/repository/repotest"
)

// fakeOTPWindow lleva la cuenta por clave como lo haria el script en Redis.
type fakeOTPWindow struct {
	counts map[string]int64
	ttls   map[string]interface{}
	err    error
}

func newFakeOTPWindow() *fakeOTPWindow {
	return &fakeOTPWindow{counts: map[string]int64{}, ttls: map[string]interface{}{}}
}

func (f *fakeOTPWindow) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if script != otpWindowScript || len(keys) != 1 || len(args) != 1 {
		cmd.SetErr(errors.New("unexpected eval call"))
		return cmd
	}
	f.counts[keys[0]]++
	if f.counts[keys[0]] == 1 {
		f.ttls[keys[0]] = args[0]
	}
	cmd.SetVal(f.counts[keys[0]])
	return cmd
}

func TestNewRedisOTPRateLimiter_DisabledByDefault(t *testing.T) {
	if NewRedisOTPRateLimiter(zap.NewNop(), nil, time.Minute, 3) != nil {
		t.Fatalf("expected no limiter without a redis client")
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	if NewRedisOTPRateLimiter(zap.NewNop(), client, time.Minute, 0) != nil {
		t.Fatalf("expected no limiter when max is 0")
	}
}

func TestRequestOTP_RedisWindowPerEmail(t *testing.T) {
	window := newFakeOTPWindow()
	store := repotest.NewMemoryStore()
	sender := &mockEmailSender{}
	limiter := newOTPRateLimiter(zap.NewNop(), window, 10*time.Minute, 2)
	svc := newTestUserService(store, sender, UserServiceOptions{Limiter: limiter})
	ctx := context.Background()

	for i, email := range []string{"asha@example.com", " Asha@Example.com "} {
		if _, err := svc.RequestOTP(ctx, email); err != nil {
			t.Fatalf("request %d: expected otp to be sent, got %v", i+1, err)
		}
	}
	sender.lastCode = ""
	if _, err := svc.RequestOTP(ctx, "ASHA@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected third request in the window to be throttled, got %v", err)
	}
	if sender.lastCode != "" {
		t.Fatalf("expected no email for a throttled request")
	}

	key := otpLimiterPrefix + "asha@example.com"
	if window.counts[key] != 3 || len(window.counts) != 1 {
		t.Fatalf("expected every spelling to share one window, got %v", window.counts)
	}
	if window.ttls[key] != int64(600000) {
		t.Fatalf("expected window of 10 minutes in ms, got %v", window.ttls[key])
	}

	if _, err := svc.RequestOTP(ctx, "ravi@example.com"); err != nil {
		t.Fatalf("expected another email to have its own window, got %v", err)
	}
}

func TestRequestOTP_RedisDownDoesNotBlockLogin(t *testing.T) {
	window := newFakeOTPWindow()
	window.err = errors.New("dial tcp: connection refused")
	sender := &mockEmailSender{}
	limiter := newOTPRateLimiter(zap.NewNop(), window, time.Minute, 1)
	svc := newTestUserService(repotest.NewMemoryStore(), sender, UserServiceOptions{Limiter: limiter})

	for i := 0; i < 3; i++ {
		if _, err := svc.RequestOTP(context.Background(), "asha@example.com"); err != nil {
			t.Fatalf("expected otp to be sent while redis is down, got %v", err)
		}
	}
	if sender.lastTo != "asha@example.com" {
		t.Fatalf("expected email delivered, got %q", sender.lastTo)
	}
}

func TestRedisOTPRateLimiter_EmptyEmail(t *testing.T) {
	window := newFakeOTPWindow()
	limiter := newOTPRateLimiter(nil, window, 0, 3)
	if limiter.Allow(context.Background(), "   ") {
		t.Fatalf("expected blank email to be rejected")
	}
	if len(window.counts) != 0 {
		t.Fatalf("expected no redis call for a blank email")
	}
	if limiter.window != 10*time.Minute {
		t.Fatalf("expected default window, got %v", limiter.window)
	}
}
