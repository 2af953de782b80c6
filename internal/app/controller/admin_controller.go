package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type AdminController struct {
	orderService  service.OrderService
	reportService service.ReportService
}

func NewAdminController(orderService service.OrderService, reportService service.ReportService) *AdminController {
	return &AdminController{
		orderService:  orderService,
		reportService: reportService,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// parseTimeQuery accepts RFC3339 timestamps or YYYY-MM-DD dates.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, key+" must be an RFC3339 timestamp or YYYY-MM-DD date")
	return nil, false
}

// ListOrders returns every order, newest first
// GET /api/v1/admin/orders?status=&from=&to=
func (ctrl *AdminController) ListOrders(c *gin.Context) {
	var filter service.AdminOrderFilter
	if raw := c.Query("status"); raw != "" {
		status := model.OrderStatus(raw)
		filter.Status = &status
	}
	var ok bool
	if filter.From, ok = parseTimeQuery(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseTimeQuery(c, "to"); !ok {
		return
	}

	orders, err := ctrl.orderService.AdminList(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateOrderStatus moves an order along its lifecycle
// PUT /api/v1/admin/orders/:id/status
func (ctrl *AdminController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status is required")
		return
	}

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), uint(orderID), model.OrderStatus(req.Status))
	if err != nil {
		log.Warn("Order status update rejected", map[string]interface{}{
			"order_id": orderID,
			"status":   req.Status,
			"error":    err.Error(),
		})
		respondServiceError(c, err, "order")
		return
	}

	adminID, _ := middleware.GetUserID(c)
	log.Info("Order status updated by admin", map[string]interface{}{
		"order_id": orderID,
		"status":   req.Status,
		"admin_id": adminID,
	})
	c.JSON(http.StatusOK, order)
}

// ExportOrders uploads an XLSX report and returns its download link
// POST /api/v1/admin/reports/orders?from=&to=
func (ctrl *AdminController) ExportOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	report, err := ctrl.reportService.ExportOrders(c.Request.Context(), from, to)
	if err != nil {
		log.Error("Order report export failed", err)
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.InternalExternalAPI, "Failed to export the order report")
		return
	}
	c.JSON(http.StatusCreated, report)
}
