package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// GetOrders returns the account's order history
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "User not authenticated")
		return
	}

	orders, err := ctrl.orderService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		respondServiceError(c, err, "order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one of the account's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "User not authenticated")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	order, err := ctrl.orderService.GetForUser(c.Request.Context(), userID, uint(orderID))
	if err != nil {
		respondServiceError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// Track looks an order up by public id or tracking code
// GET /api/v1/track/:token
func (ctrl *OrderController) Track(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	token := strings.TrimSpace(c.Param("token"))

	order, err := ctrl.orderService.Track(c.Request.Context(), token)
	if err != nil {
		log.Debug("Tracking lookup missed", map[string]interface{}{
			"token": token,
		})
		respondServiceError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, order)
}
