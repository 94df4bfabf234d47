package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mitr-backend/internal/config"
	"mitr-backend/internal/db"
	"mitr-backend/internal/email"
	apihttp "mitr-backend/internal/http"
	"mitr-backend/internal/jobs"
	"mitr-backend/internal/payment"
	"mitr-backend/internal/repository"
	"mitr-backend/internal/service"
	"mitr-backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	courseRepo := repository.NewPgCourseRepository(pool)
	orderRepo := repository.NewPgOrderRepository(pool)

	emailSender := newEmailSender(cfg, logger)

	var otpLimiter service.OTPRateLimiter
	if cfg.RedisAddr != "" && cfg.OTPRateLimitMax > 0 {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, otp requests are not rate limited", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(logger, redisClient, cfg.OTPRateLimitWindow(), cfg.OTPRateLimitMax)
		}
		cancel()
	}

	posterStore := storage.NewDisabledStore()
	if cfg.GCSPosterBucket != "" {
		gcs, err := storage.NewGCSPosterStore(ctx, cfg.GCSPosterBucket, cfg.GCSCDNDomain, cfg.GCSCredentialsFile)
		if err != nil {
			logger.Warn("gcs poster store init failed", zap.Error(err))
		} else {
			defer gcs.Close()
			posterStore = gcs
		}
	} else {
		logger.Warn("poster bucket not configured, course uploads will fail")
	}

	verifier := payment.NewAcceptAllVerifier()
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		rzp, err := payment.NewRazorpayVerifier(logger, cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		if err != nil {
			logger.Warn("razorpay verifier init failed", zap.Error(err))
		} else {
			verifier = rzp
		}
	}

	if cfg.OTPTestMode {
		logger.Warn("otp test mode enabled, every code is " + service.TestOTPCode)
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL())
	userSvc := service.NewUserService(logger, userRepo, courseRepo, emailSender, service.UserServiceOptions{
		TestMode: cfg.OTPTestMode,
		OTPTTL:   cfg.OTPTTL(),
		Limiter:  otpLimiter,
	})
	courseSvc := service.NewCourseService(logger, courseRepo, posterStore)
	orderSvc := service.NewOrderService(logger, orderRepo, courseRepo, userRepo, emailSender, verifier)

	sweeper := jobs.NewOTPSweeper(logger, userRepo, jobs.DefaultAbandonGrace)
	if err := sweeper.Start(cfg.OTPSweepSchedule); err != nil {
		logger.Fatal("otp sweeper", zap.Error(err))
	}

	router := apihttp.NewRouter(logger,
		apihttp.RouterDeps{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			JWT:            jwtSvc,
			Users:          userSvc,
			DB:             pool,
		},
		apihttp.NewUserHandler(logger, userSvc, jwtSvc, cfg.CookieSecure),
		apihttp.NewCourseHandler(logger, courseSvc),
		apihttp.NewOrderHandler(logger, orderSvc, cfg.RazorpayKeyID),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sweeper.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.IsDevelopment() {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	gin.SetMode(gin.ReleaseMode)
	logger, _ := zap.NewProduction()
	return logger
}

// newEmailSender prefiere SendGrid, luego SMTP; sin ninguno los envios fallan.
func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SendGridAPIKey != "" {
		sender, err := email.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
		if err == nil {
			return sender
		}
		logger.Warn("sendgrid sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			User:        cfg.SMTPUser,
			Pass:        cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	logger.Warn("email sender not configured")
	return email.NewDisabledSender("email sender not configured")
}
