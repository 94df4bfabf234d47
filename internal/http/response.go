package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mitr-backend/internal/service"
)

var (
	errUnauthenticated = errors.New("please login to access this resource")
	errInvalidRequest  = errors.New("invalid request")
)

// statusFor traduce los errores de servicio a codigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, service.ErrJWTInvalid),
		errors.Is(err, service.ErrJWTExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPaymentNotCaptured),
		errors.Is(err, service.ErrPaymentMismatch),
		errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrAlreadyPurchased),
		errors.Is(err, service.ErrOTPInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmailSendFailure),
		errors.Is(err, service.ErrStorageFailure),
		errors.Is(err, service.ErrPaymentUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError es el unico punto de traduccion error -> respuesta.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": err.Error()})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// bindError traduce el primer fallo de validacion del binding a un 400 legible.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest("invalid request body")
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return badRequest("%s is required", field)
	case "email":
		return badRequest("please enter a valid email")
	case "max":
		return badRequest("%s cannot exceed %s characters", field, fe.Param())
	default:
		return badRequest("invalid %s", field)
	}
}

// recoveryMiddleware convierte panics en la misma envoltura de error.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal server error",
		})
	})
}
