package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger       *zap.Logger
	userServ     *service.UserService
	jwtServ      *service.JWTService
	cookieSecure bool
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, cookieSecure bool) *UserHandler {
	return &UserHandler{
		logger:       logger,
		userServ:     userServ,
		jwtServ:      jwtServ,
		cookieSecure: cookieSecure,
	}
}

// otpCode acepta el codigo como string o como numero JSON.
type otpCode string

func (o *otpCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = otpCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*o = otpCode(n.String())
	return nil
}

// parseEducation acepta un arreglo JSON o un string que contiene uno.
func parseEducation(raw json.RawMessage) ([]domain.Education, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		raw = json.RawMessage(s)
	}
	var out []domain.Education
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type registerRequest struct {
	FullName     string          `json:"full_name"`
	Email        string          `json:"email" binding:"required,email"`
	MobileNumber string          `json:"mobileNumber" binding:"omitempty,max=10"`
	Country      string          `json:"country"`
	State        string          `json:"state"`
	City         string          `json:"city"`
	PinCode      string          `json:"pinCode"`
	Education    json.RawMessage `json:"education"`
}

type profileRequest struct {
	FullName     string          `json:"full_name"`
	Email        string          `json:"email" binding:"omitempty,email"`
	MobileNumber string          `json:"mobileNumber" binding:"omitempty,max=10"`
	Country      string          `json:"country"`
	State        string          `json:"state"`
	City         string          `json:"city"`
	PinCode      string          `json:"pinCode"`
	Education    json.RawMessage `json:"education"`
}

func (r profileRequest) patch() (domain.UserPatch, error) {
	education, err := parseEducation(r.Education)
	if err != nil {
		return domain.UserPatch{}, badRequest("invalid education format")
	}
	return domain.UserPatch{
		FullName:     &r.FullName,
		Email:        &r.Email,
		MobileNumber: &r.MobileNumber,
		Country:      &r.Country,
		State:        &r.State,
		City:         &r.City,
		PinCode:      &r.PinCode,
		Education:    education,
	}, nil
}

// SendOTP maneja POST /send-otp.
func (h *UserHandler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp request", zap.Error(err))
		writeError(c, h.logger, bindError(err))
		return
	}

	issue, err := h.userServ.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	kind := "random"
	if issue.TestMode {
		kind = "hardcoded"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("OTP %s sent successfully to registered email", kind),
	})
}

// VerifyOTP maneja POST /verify-otp.
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string  `json:"email" binding:"required,email"`
		Otp   otpCode `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp verify request", zap.Error(err))
		writeError(c, h.logger, bindError(err))
		return
	}

	res, err := h.userServ.VerifyOTP(c.Request.Context(), req.Email, string(req.Otp))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if res.NewUser {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "OTP verified, proceed to registration",
			"newUser": true,
		})
		return
	}
	h.sendSession(c, res.User, "Welcome Back "+res.User.FullName)
}

// Register maneja POST /register.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		writeError(c, h.logger, bindError(err))
		return
	}
	education, err := parseEducation(req.Education)
	if err != nil {
		writeError(c, h.logger, badRequest("invalid education format"))
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		FullName:     req.FullName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Country:      req.Country,
		State:        req.State,
		City:         req.City,
		PinCode:      req.PinCode,
		Education:    education,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.sendSession(c, user, "Registered Successfully")
}

func (h *UserHandler) sendSession(c *gin.Context, user domain.User, message string) {
	session, err := h.jwtServ.Issue(user)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	setSessionCookie(c, session, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"user":    user,
		"token":   session.Token,
	})
}

// MyProfile maneja GET /myprofile.
func (h *UserHandler) MyProfile(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		writeError(c, h.logger, errUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateMe maneja PUT /me/update.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, errUnauthenticated)
		return
	}
	h.updateUser(c, claims.UserID)
}

// UpdateUser maneja PUT /user/:id y actualiza al usuario indicado en la ruta.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	h.updateUser(c, c.Param("id"))
}

func (h *UserHandler) updateUser(c *gin.Context, userID string) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update user request", zap.Error(err))
		writeError(c, h.logger, bindError(err))
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	user, err := h.userServ.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"user":    user,
	})
}

// Logout maneja GET /logout. No hay revocacion: solo se expira la cookie.
func (h *UserHandler) Logout(c *gin.Context) {
	clearSessionCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged Out"})
}

// ListUsers maneja GET /all/user.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, count, err := h.userServ.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "usersCount": count, "users": users})
}

// GetUser maneja GET /user/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userServ.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// MyPurchasedCourses maneja GET /purchased/course.
func (h *UserHandler) MyPurchasedCourses(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, errUnauthenticated)
		return
	}
	courses, err := h.userServ.ListPurchasedCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "purchasedCourses": courses})
}

// ListPurchasers maneja GET /all/purchased.
func (h *UserHandler) ListPurchasers(c *gin.Context) {
	purchasers, err := h.userServ.ListPurchasers(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": purchasers})
}
