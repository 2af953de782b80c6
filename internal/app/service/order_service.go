package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderView is an order with its tracking projection.
type OrderView struct {
	*model.Order
	TrackingCode string         `json:"tracking_code"`
	Progress     model.Progress `json:"progress"`
}

func NewOrderView(order *model.Order) OrderView {
	return OrderView{
		Order:        order,
		TrackingCode: order.ShortID(),
		Progress:     model.ProjectProgress(order.Status),
	}
}

// TrackingView is the public projection of an order. It carries no customer
// contact details.
type TrackingView struct {
	TrackingCode   string               `json:"tracking_code"`
	Status         model.OrderStatus    `json:"status"`
	Progress       model.Progress       `json:"progress"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	Total          decimal.Decimal      `json:"total"`
	CreatedAt      time.Time            `json:"created_at"`
	Items          []TrackingItem       `json:"items"`
}

type TrackingItem struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func NewTrackingView(order *model.Order) TrackingView {
	items := make([]TrackingItem, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		items = append(items, TrackingItem{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			ImageURL:  item.Product.ImageURL,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return TrackingView{
		TrackingCode:   order.ShortID(),
		Status:         order.Status,
		Progress:       model.ProjectProgress(order.Status),
		DeliveryMethod: order.DeliveryMethod,
		Total:          order.Total,
		CreatedAt:      order.CreatedAt,
		Items:          items,
	}
}

type AdminOrderFilter struct {
	Status *model.OrderStatus
	From   *time.Time
	To     *time.Time
}

type OrderService interface {
	ListByUser(ctx context.Context, userID uint) ([]OrderView, error)
	GetForUser(ctx context.Context, userID, orderID uint) (*OrderView, error)
	Track(ctx context.Context, token string) (*TrackingView, error)
	AdminList(ctx context.Context, filter AdminOrderFilter) ([]OrderView, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*OrderView, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderService{orderRepo: orderRepo}
}

func views(orders []model.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderView(&orders[i]))
	}
	return out
}

func (s *orderService) ListByUser(ctx context.Context, userID uint) ([]OrderView, error) {
	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return views(orders), nil
}

func (s *orderService) find(ctx context.Context, lookup func() (*model.Order, error)) (*model.Order, error) {
	order, err := lookup()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetForUser hides orders of other accounts behind ErrOrderNotFound.
func (s *orderService) GetForUser(ctx context.Context, userID, orderID uint) (*OrderView, error) {
	order, err := s.find(ctx, func() (*model.Order, error) { return s.orderRepo.FindByID(ctx, orderID) })
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		logger.Warn("Order access denied", map[string]interface{}{
			"order_id": orderID,
			"user_id":  userID,
		})
		return nil, ErrOrderNotFound
	}
	view := NewOrderView(order)
	return &view, nil
}

// Track resolves a full public id or a tracking code. Sequential numeric ids
// are not accepted here; they are only reachable by the owning account.
func (s *orderService) Track(ctx context.Context, token string) (*TrackingView, error) {
	var order *model.Order
	var err error
	switch {
	case isUUID(token):
		order, err = s.find(ctx, func() (*model.Order, error) { return s.orderRepo.FindByPublicID(ctx, token) })
	case len(token) == model.ShortIDLength && isHex(token):
		order, err = s.find(ctx, func() (*model.Order, error) { return s.orderRepo.FindByShortID(ctx, token) })
	default:
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	view := NewTrackingView(order)
	return &view, nil
}

func (s *orderService) AdminList(ctx context.Context, filter AdminOrderFilter) ([]OrderView, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orderRepo.FindAll(ctx, repository.OrderFilter{
		Status: filter.Status,
		From:   filter.From,
		To:     filter.To,
	})
	if err != nil {
		return nil, err
	}
	return views(orders), nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*OrderView, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.find(ctx, func() (*model.Order, error) { return s.orderRepo.FindByID(ctx, orderID) })
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     order.Status,
		"to":       status,
	})
	order.Status = status
	view := NewOrderView(order)
	return &view, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
