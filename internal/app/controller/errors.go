package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
)

type serviceErrorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var serviceErrors = []serviceErrorMapping{
	{service.ErrIdentityUnknown, http.StatusUnauthorized, apperrors.CartIdentityUnknown, "Request a guest token or sign in first"},
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound, "Product not found"},
	{service.ErrCategoryNotFound, http.StatusNotFound, apperrors.CategoryNotFound, "Category not found"},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound, "Cart item not found"},
	{service.ErrOutOfStock, http.StatusConflict, apperrors.CartOutOfStock, "This product is out of stock"},
	{service.ErrInsufficientStock, http.StatusConflict, apperrors.CartStockExceeded, "Not enough stock for the requested quantity"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.CartInvalidQuantity, "Quantity must be at least 1"},
	{service.ErrEmptyCart, http.StatusBadRequest, apperrors.CartEmpty, "Your cart is empty"},
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound, "Order not found"},
	{service.ErrInvalidStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus, "Unknown order status"},
	{service.ErrInvalidStatusTransition, http.StatusConflict, apperrors.OrderInvalidTransition, "The order cannot move to that status"},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound, "User not found"},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists, "This email is already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid or expired refresh token"},
	{util.ErrPasswordTooShort, http.StatusBadRequest, apperrors.AuthWeakPassword, util.ErrPasswordTooShort.Error()},
}

// respondServiceError writes the client error for a service failure.
// Anything unmapped is treated as a storage error.
func respondServiceError(c *gin.Context, err error, subject string) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		apperrors.RespondWithValidationError(c, apperrors.ValidationInvalidInput,
			vErr.Error(), map[string]string{vErr.Field: vErr.Message})
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			body := gin.H{"error": m.code, "message": m.message}
			var stockErr *service.StockError
			if errors.As(err, &stockErr) {
				body["product_id"] = stockErr.ProductID
				body["available"] = stockErr.Available
			}
			c.JSON(m.status, body)
			return
		}
	}

	apperrors.ParseAndRespond(c, err, subject)
}
