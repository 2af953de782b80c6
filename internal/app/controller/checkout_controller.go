package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/session"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

type CheckoutRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	DeliveryMethod string `json:"delivery_method"`
	PaymentMethod  string `json:"payment_method"`
}

// Checkout turns the active cart into an order
// POST /api/v1/checkout
func (ctrl *CheckoutController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	owner := session.FromContext(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	result, err := ctrl.checkoutService.Checkout(c.Request.Context(), owner, service.CheckoutInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		DeliveryMethod: model.DeliveryMethod(req.DeliveryMethod),
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		log.Warn("Checkout failed", map[string]interface{}{
			"owner": owner.String(),
			"error": err.Error(),
		})
		respondServiceError(c, err, "order")
		return
	}

	log.Info("Checkout completed", map[string]interface{}{
		"owner":    owner.String(),
		"order_id": result.Order.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"order":             service.NewOrderView(result.Order),
		"tracking_code":     result.TrackingCode,
		"confirmation_path": result.ConfirmationPath,
	})
}
