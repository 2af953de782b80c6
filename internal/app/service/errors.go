package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrCartItemNotFound        = errors.New("cart item not found")
	ErrInsufficientStock       = errors.New("requested quantity exceeds stock")
	ErrOutOfStock              = errors.New("product is out of stock")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrIdentityUnknown         = errors.New("no guest or account identity")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailAlreadyExists      = errors.New("email already exists")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrInvalidRefreshToken     = errors.New("invalid refresh token")
)

// StockError reports a write rejected by the stock ceiling. It unwraps to
// ErrOutOfStock or ErrInsufficientStock.
type StockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("product %d is out of stock", e.ProductID)
	}
	return fmt.Sprintf("only %d of product %d in stock, %d requested", e.Available, e.ProductID, e.Requested)
}

func (e *StockError) Unwrap() error {
	if e.Available <= 0 {
		return ErrOutOfStock
	}
	return ErrInsufficientStock
}

// ValidationError names the first invalid checkout or signup field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// checkStock applies the ceiling rule used by every cart write.
func checkStock(productID uint, available, requested int) error {
	if available <= 0 || requested > available {
		return &StockError{ProductID: productID, Requested: requested, Available: available}
	}
	return nil
}
