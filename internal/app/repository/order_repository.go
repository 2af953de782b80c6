package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orderItemBatchSize = 100

type OrderFilter struct {
	Status *model.OrderStatus
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	CreateItems(ctx context.Context, items []model.OrderItem) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByPublicID(ctx context.Context, publicID string) (*model.Order, error)
	FindByShortID(ctx context.Context, shortID string) (*model.Order, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC").Preload("Product")
	})
}

// Create inserts the order row only; items are written by CreateItems.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id": order.UserID,
		"total":   order.Total.String(),
	})

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":  order.ID,
		"public_id": order.PublicID,
	})
	return nil
}

// CreateItems bulk-inserts order lines.
func (r *orderRepository) CreateItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).
		CreateInBatches(&items, orderItemBatchSize).Error; err != nil {
		logger.Error("Failed to create order items in database", err, map[string]interface{}{
			"order_id": items[0].OrderID,
			"count":    len(items),
		})
		return err
	}

	logger.Debug("Order items created in database", map[string]interface{}{
		"order_id": items[0].OrderID,
		"count":    len(items),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		logLookupError("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByPublicID(ctx context.Context, publicID string) (*model.Order, error) {
	var order model.Order
	err := r.preloadOrder(ctx).
		Where("public_id = ?", strings.ToLower(publicID)).
		First(&order).Error
	if err != nil {
		logLookupError("Failed to find order by public ID in database", err, map[string]interface{}{
			"public_id": publicID,
		})
		return nil, err
	}
	return &order, nil
}

// FindByShortID matches the leading characters of the public id. On the
// unlikely prefix collision the newest order wins.
func (r *orderRepository) FindByShortID(ctx context.Context, shortID string) (*model.Order, error) {
	var order model.Order
	err := r.preloadOrder(ctx).
		Where("public_id LIKE ?", strings.ToLower(shortID)+"%").
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		logLookupError("Failed to find order by short ID in database", err, map[string]interface{}{
			"short_id": shortID,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	if err := r.preloadOrder(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	query := r.preloadOrder(ctx)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders in database", err)
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
