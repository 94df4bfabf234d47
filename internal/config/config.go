package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	JWTSecret    string `env:"JWT_SECRET,required,notEmpty"`
	JWTTTLHours  int    `env:"JWT_TTL_HOURS" envDefault:"24"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	OTPTestMode               bool   `env:"OTP_TEST_MODE" envDefault:"false"`
	OTPTTLSeconds             int    `env:"OTP_TTL_SECONDS" envDefault:"60"`
	OTPRateLimitMax           int    `env:"OTP_RATE_LIMIT_MAX" envDefault:"0"`
	OTPRateLimitWindowMinutes int    `env:"OTP_RATE_LIMIT_WINDOW_MINUTES" envDefault:"10"`
	OTPSweepSchedule          string `env:"OTP_SWEEP_SCHEDULE" envDefault:"@every 1m"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"MITR Consultancy"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	SendGridAPIKey    string `env:"SENDGRID_API_KEY"`
	SendGridFromEmail string `env:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `env:"SENDGRID_FROM_NAME" envDefault:"MITR Consultancy"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GCSPosterBucket    string `env:"GCS_POSTER_BUCKET"`
	GCSCDNDomain       string `env:"GCS_CDN_DOMAIN"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`

	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,https://mitr-consultancy.vercel.app,https://mitraconsultancy.co.in,https://www.mitraconsultancy.co.in,https://mitrconsultancy.netlify.app"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "development")
}

func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) OTPTTL() time.Duration {
	if c.OTPTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.OTPTTLSeconds) * time.Second
}

func (c *Config) OTPRateLimitWindow() time.Duration {
	if c.OTPRateLimitWindowMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.OTPRateLimitWindowMinutes) * time.Minute
}
