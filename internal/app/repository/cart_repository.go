package repository

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// CartRepository persists account cart lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, cartItem *model.CartItem) error
	FindByUserID(ctx context.Context, userID uint) ([]model.CartItem, error)
	FindByUserAndID(ctx context.Context, userID, id uint) (*model.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uint) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, id uint, quantity int) error
	Delete(ctx context.Context, userID, id uint) error
	DeleteByUserID(ctx context.Context, userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) Create(ctx context.Context, cartItem *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"user_id":    cartItem.UserID,
		"product_id": cartItem.ProductID,
		"quantity":   cartItem.Quantity,
	})

	if err := r.db.WithContext(ctx).Create(cartItem).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"user_id":    cartItem.UserID,
			"product_id": cartItem.ProductID,
		})
		return err
	}

	logger.Debug("Cart item created in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
	})
	return nil
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) ([]model.CartItem, error) {
	var cartItems []model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Product").
		Order("id ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(cartItems),
	})
	return cartItems, nil
}

// FindByUserAndID scopes the line lookup to its owner.
func (r *cartRepository) FindByUserAndID(ctx context.Context, userID, id uint) (*model.CartItem, error) {
	var cartItem model.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Preload("Product").
		First(&cartItem).Error
	if err != nil {
		logLookupError("Failed to find cart item in database", err, map[string]interface{}{
			"cart_item_id": id,
			"user_id":      userID,
		})
		return nil, err
	}
	return &cartItem, nil
}

func (r *cartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uint) (*model.CartItem, error) {
	var cartItem model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&cartItem).Error
	if err != nil {
		logLookupError("Failed to find cart item by user and product in database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}
	return &cartItem, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	logger.Debug("Updating cart item quantity in database", map[string]interface{}{
		"cart_item_id": id,
		"quantity":     quantity,
	})

	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to update cart item in database", result.Error, map[string]interface{}{
			"cart_item_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID, id uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": id,
		"user_id":      userID,
	})

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_item_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items by user ID from database", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return result.Error
	}

	logger.Debug("Cart items deleted by user ID from database", map[string]interface{}{
		"user_id": userID,
		"deleted": result.RowsAffected,
	})
	return nil
}

// logLookupError keeps expected misses out of the error log.
func logLookupError(msg string, err error, fields map[string]interface{}) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Debug("Record not found", fields)
		return
	}
	logger.Error(msg, err, fields)
}
