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
	"mitr-backend/internal/repository"
)

const (
	defaultOTPTTL   = 60 * time.Second
	maxMobileLength = 10
)

// UserService coordina el flujo OTP, el registro y los perfiles.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	courses     repository.CourseRepository
	emailSender email.Sender
	otpLimiter  OTPRateLimiter
	testMode    bool
	otpTTL      time.Duration
	now         func() time.Time
}

// UserServiceOptions agrupa la configuracion explicita del flujo OTP.
type UserServiceOptions struct {
	TestMode bool
	OTPTTL   time.Duration
	// Limiter es opcional; nil deja la emision de OTP sin limite.
	Limiter OTPRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, courses repository.CourseRepository, emailSender email.Sender, opts UserServiceOptions) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.OTPTTL
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &UserService{
		logger:      logger,
		users:       users,
		courses:     courses,
		emailSender: emailSender,
		otpLimiter:  opts.Limiter,
		testMode:    opts.TestMode,
		otpTTL:      ttl,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// OTPIssue describe un OTP emitido, sin exponer el codigo.
type OTPIssue struct {
	Email     string
	ExpiresAt time.Time
	TestMode  bool
}

// Verification es el resultado de VerifyOTP. NewUser indica que falta el registro.
type Verification struct {
	User    domain.User
	NewUser bool
}

type RegisterInput struct {
	FullName     string
	Email        string
	MobileNumber string
	Country      string
	State        string
	City         string
	PinCode      string
	Education    []domain.Education
}

func (s *UserService) RequestOTP(ctx context.Context, emailAddr string) (OTPIssue, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return OTPIssue{}, fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if !isValidEmail(emailAddr) {
		return OTPIssue{}, ErrInvalidEmail
	}

	if s.emailSender == nil {
		s.logger.Warn("send verification otp skipped: no sender configured", zap.String("email", emailAddr))
		return OTPIssue{}, ErrEmailSendFailure
	}
	if s.otpLimiter != nil && !s.otpLimiter.Allow(ctx, emailAddr) {
		return OTPIssue{}, ErrRateLimited
	}

	user, err := s.findOrCreateIdentity(ctx, emailAddr)
	if err != nil {
		return OTPIssue{}, err
	}

	code, err := generateOTP(s.testMode)
	if err != nil {
		return OTPIssue{}, err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return OTPIssue{}, err
	}
	expiresAt := s.now().Add(s.otpTTL)
	if err := s.users.UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return OTPIssue{}, err
	}

	if err := s.emailSender.SendVerificationOTP(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send verification otp failed", zap.Error(err), zap.String("email", emailAddr))
		return OTPIssue{}, fmt.Errorf("%w: %v", ErrEmailSendFailure, err)
	}

	return OTPIssue{Email: emailAddr, ExpiresAt: expiresAt, TestMode: s.testMode}, nil
}

func (s *UserService) findOrCreateIdentity(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	user = domain.User{
		ID:        uuid.NewString(),
		Email:     emailAddr,
		Role:      domain.RoleUser,
		Education: []domain.Education{},
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Otra solicitud concurrente creo la identidad primero.
		if errors.Is(err, repository.ErrDuplicate) {
			return s.users.GetByEmail(ctx, emailAddr)
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) VerifyOTP(ctx context.Context, emailAddr, code string) (Verification, error) {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" {
		return Verification{}, fmt.Errorf("%w: email and otp are required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Verification{}, ErrUserNotFound
		}
		return Verification{}, err
	}

	if user.OtpCodeHash == "" || user.OtpExpiresAt == nil {
		return Verification{}, ErrOTPInvalid
	}
	if s.now().After(*user.OtpExpiresAt) {
		return Verification{}, ErrOTPInvalid
	}
	if !matchOTP(code, user.OtpCodeHash) {
		return Verification{}, ErrOTPInvalid
	}

	registered := user.IsRegistered()
	if err := s.users.ClearOTP(ctx, user.ID, user.OtpCodeHash, registered); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Verification{}, ErrOTPInvalid
		}
		return Verification{}, err
	}
	user.OtpCodeHash = ""
	user.OtpExpiresAt = nil

	if !registered {
		return Verification{User: user, NewUser: true}, nil
	}
	user.Verified = true
	return Verification{User: user}, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" {
		return domain.User{}, fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if !isValidEmail(in.Email) {
		return domain.User{}, ErrInvalidEmail
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	if len(in.MobileNumber) > maxMobileLength {
		return domain.User{}, fmt.Errorf("%w: mobile number cannot exceed %d characters", ErrInvalidInput, maxMobileLength)
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.Verified:
		return domain.User{}, ErrDuplicateIdentity
	case err == nil:
		patch := domain.UserPatch{
			FullName:     &in.FullName,
			MobileNumber: &in.MobileNumber,
			Country:      &in.Country,
			State:        &in.State,
			City:         &in.City,
			PinCode:      &in.PinCode,
			Education:    in.Education,
		}
		patch.Apply(&existing)
		existing.Verified = true
		if err := s.users.Update(ctx, existing); err != nil {
			return domain.User{}, s.mapWriteErr(err)
		}
		return existing, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return domain.User{}, err
	}

	education := in.Education
	if education == nil {
		education = []domain.Education{}
	}
	user := domain.User{
		ID:               uuid.NewString(),
		FullName:         in.FullName,
		Email:            in.Email,
		MobileNumber:     in.MobileNumber,
		Country:          strings.TrimSpace(in.Country),
		State:            strings.TrimSpace(in.State),
		City:             strings.TrimSpace(in.City),
		PinCode:          strings.TrimSpace(in.PinCode),
		Education:        education,
		Role:             domain.RoleUser,
		Verified:         true,
		PurchasedCourses: []string{},
		CreatedAt:        s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, s.mapWriteErr(err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile aplica solo los campos no vacios del patch.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Email != nil {
		normalized := normalizeEmail(*patch.Email)
		if normalized != "" && !isValidEmail(normalized) {
			return domain.User{}, ErrInvalidEmail
		}
		patch.Email = &normalized
	}
	if patch.MobileNumber != nil && len(strings.TrimSpace(*patch.MobileNumber)) > maxMobileLength {
		return domain.User{}, fmt.Errorf("%w: mobile number cannot exceed %d characters", ErrInvalidInput, maxMobileLength)
	}
	if !patch.Apply(&user) {
		return user, nil
	}
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, s.mapWriteErr(err)
	}
	return user, nil
}

// ListUsers devuelve todos los usuarios, mas recientes primero, y el total.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

func (s *UserService) ListPurchasedCourses(ctx context.Context, userID string) ([]domain.CourseSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.courses.Summaries(ctx, user.PurchasedCourses)
}

// ListPurchasers devuelve los usuarios con al menos una compra.
func (s *UserService) ListPurchasers(ctx context.Context) ([]domain.Purchaser, error) {
	users, err := s.users.ListPurchasers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Purchaser, 0, len(users))
	for _, u := range users {
		summaries, err := s.courses.Summaries(ctx, u.PurchasedCourses)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Purchaser{User: u, PurchasedCourses: summaries})
	}
	return out, nil
}

// RequireRole carga al usuario y compara su rol por igualdad.
func (s *UserService) RequireRole(ctx context.Context, userID, role string) (domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role != role {
		return domain.User{}, fmt.Errorf("%w: role %q cannot access this resource", ErrForbidden, user.Role)
	}
	return user, nil
}

func (s *UserService) mapWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateIdentity
	case errors.Is(err, pgx.ErrNoRows):
		return ErrUserNotFound
	default:
		return err
	}
}
