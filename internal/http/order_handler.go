package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mitr-backend/internal/service"
)

// OrderHandler expone la creacion y consulta de ordenes.
type OrderHandler struct {
	logger       *zap.Logger
	orderServ    *service.OrderService
	paymentKeyID string
}

func NewOrderHandler(logger *zap.Logger, orderServ *service.OrderService, paymentKeyID string) *OrderHandler {
	return &OrderHandler{logger: logger, orderServ: orderServ, paymentKeyID: paymentKeyID}
}

// Create maneja POST /createorder.
func (h *OrderHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, errUnauthenticated)
		return
	}
	var req struct {
		CourseID          json.RawMessage `json:"courseId"`
		RazorpayPaymentID string          `json:"razorpay_payment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create order request", zap.Error(err))
		writeError(c, h.logger, badRequest("enter valid course ids"))
		return
	}
	var courseIDs []string
	if len(req.CourseID) == 0 || json.Unmarshal(req.CourseID, &courseIDs) != nil || len(courseIDs) == 0 {
		writeError(c, h.logger, badRequest("enter valid course ids"))
		return
	}

	order, err := h.orderServ.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:    claims.UserID,
		CourseIDs: courseIDs,
		PaymentID: req.RazorpayPaymentID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Courses Purchased! You can start learning.",
		"order":   order,
	})
}

// Mine maneja GET /myorders.
func (h *OrderHandler) Mine(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, errUnauthenticated)
		return
	}
	orders, err := h.orderServ.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// List maneja GET /admin/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, count, err := h.orderServ.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ordersCount": count, "orders": orders})
}

// Get maneja GET /admin/order/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orderServ.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// PaymentKey maneja GET /getkey con el id publico de la pasarela.
func (h *OrderHandler) PaymentKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "key": h.paymentKeyID})
}
