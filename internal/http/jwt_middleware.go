package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	authUserKey   = "auth_user"
	sessionCookie = "token"
)

// JWTAuthMiddleware acepta la cookie de sesion o un header Bearer.
func JWTAuthMiddleware(logger *zap.Logger, jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			writeError(c, logger, errUnauthenticated)
			return
		}
		claims, err := jwtSvc.Parse(token)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// RequireUser carga al usuario de la sesion; si ya no existe la sesion no vale.
func RequireUser(logger *zap.Logger, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			writeError(c, logger, errUnauthenticated)
			return
		}
		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			writeError(c, logger, sessionErr(err))
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

// RequireRole compara el rol del usuario autenticado por igualdad.
func RequireRole(logger *zap.Logger, users *service.UserService, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			writeError(c, logger, errUnauthenticated)
			return
		}
		user, err := users.RequireRole(c.Request.Context(), claims.UserID, role)
		if err != nil {
			writeError(c, logger, sessionErr(err))
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

func sessionErr(err error) error {
	if statusFor(err) == http.StatusNotFound {
		return errUnauthenticated
	}
	return err
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// GetAuthUser devuelve el usuario cargado por RequireUser o RequireRole.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func setSessionCookie(c *gin.Context, session service.Session, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}
