package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/service"
)

// Pinger verifica la conectividad de la base para /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps agrupa lo que necesita NewRouter.
type RouterDeps struct {
	AllowedOrigins []string
	JWT            *service.JWTService
	Users          *service.UserService
	DB             Pinger
}

// NewRouter configura el router de Gin con middlewares y rutas bajo /api/v1.
func NewRouter(
	logger *zap.Logger,
	deps RouterDeps,
	userH *UserHandler,
	courseH *CourseHandler,
	orderH *OrderHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", healthHandler(deps.DB))

	authed := JWTAuthMiddleware(logger, deps.JWT)
	sessionUser := RequireUser(logger, deps.Users)
	admin := RequireRole(logger, deps.Users, domain.RoleAdmin)

	api := r.Group("/api/v1")

	api.POST("/send-otp", userH.SendOTP)
	api.POST("/verify-otp", userH.VerifyOTP)
	api.POST("/register", userH.Register)
	api.GET("/myprofile", authed, sessionUser, userH.MyProfile)
	api.PUT("/me/update", authed, sessionUser, userH.UpdateMe)
	api.GET("/logout", authed, sessionUser, userH.Logout)
	api.GET("/all/user", authed, admin, userH.ListUsers)
	api.GET("/user/:id", authed, admin, userH.GetUser)
	api.PUT("/user/:id", authed, admin, userH.UpdateUser)
	api.GET("/purchased/course", authed, sessionUser, userH.MyPurchasedCourses)
	api.GET("/all/purchased", authed, admin, userH.ListPurchasers)

	api.POST("/createcourse", authed, admin, courseH.Create)
	api.GET("/courses", courseH.List)
	api.GET("/course/:id", courseH.Get)
	api.PUT("/course/:id", authed, admin, courseH.Update)
	api.DELETE("/course/:id", authed, admin, courseH.Delete)

	api.POST("/createorder", authed, sessionUser, orderH.Create)
	api.GET("/myorders", authed, sessionUser, orderH.Mine)
	api.GET("/admin/orders", authed, admin, orderH.List)
	api.GET("/admin/order/:id", authed, admin, orderH.Get)
	api.GET("/getkey", orderH.PaymentKey)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
	})

	return r
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "database unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
