package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/mailer"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

const (
	minCustomerNameLength = 2
	minPhoneDigits        = 10
)

type CheckoutInput struct {
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Phone          string               `json:"phone"`
	Address        string               `json:"address"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  model.PaymentMethod  `json:"payment_method"`
}

type CheckoutResult struct {
	Order            *model.Order `json:"order"`
	TrackingCode     string       `json:"tracking_code"`
	ConfirmationPath string       `json:"confirmation_path"`
}

// CheckoutOptions carries display settings for the confirmation email.
type CheckoutOptions struct {
	Currency      string
	StorefrontURL string
}

type CheckoutService interface {
	Checkout(ctx context.Context, owner session.Identity, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	db         *gorm.DB
	carts      CartService
	orderRepo  repository.OrderRepository
	cartRepo   repository.CartRepository
	guestStore storage.GuestCartStorage
	notifier   CartNotifier
	mail       mailer.Sender
	opts       CheckoutOptions
	validate   *validator.Validate
}

func NewCheckoutService(
	db *gorm.DB,
	carts CartService,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	guestStore storage.GuestCartStorage,
	notifier CartNotifier,
	mail mailer.Sender,
	opts CheckoutOptions,
) CheckoutService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if mail == nil {
		mail = mailer.LogSender{}
	}
	return &checkoutService{
		db:         db,
		carts:      carts,
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		guestStore: guestStore,
		notifier:   notifier,
		mail:       mail,
		opts:       opts,
		validate:   validator.New(),
	}
}

// ConfirmationPath is the storefront route showing a placed order.
func ConfirmationPath(order *model.Order) string {
	return "/track/" + order.ShortID()
}

// validateCheckout stops at the first invalid field.
func (s *checkoutService) validateCheckout(input *CheckoutInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Address = strings.TrimSpace(input.Address)

	if len([]rune(input.Name)) < minCustomerNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at least %d characters", minCustomerNameLength)}
	}
	if err := s.validate.Var(input.Email, "required,email"); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if len(util.PhoneDigits(input.Phone)) < minPhoneDigits {
		return &ValidationError{Field: "phone", Message: fmt.Sprintf("must contain at least %d digits", minPhoneDigits)}
	}
	if !input.DeliveryMethod.Valid() {
		return &ValidationError{Field: "delivery_method", Message: "must be one of doorstep, park, pickup"}
	}
	if !input.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method", Message: "must be one of transfer, card"}
	}
	if input.DeliveryMethod == model.DeliveryDoorstep && input.Address == "" {
		return &ValidationError{Field: "address", Message: "is required for doorstep delivery"}
	}
	return nil
}

func (s *checkoutService) Checkout(ctx context.Context, owner session.Identity, input CheckoutInput) (*CheckoutResult, error) {
	if !owner.IsKnown() {
		return nil, ErrIdentityUnknown
	}

	snapshot, err := s.carts.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		logger.Warn("Checkout attempted with empty cart", map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, ErrEmptyCart
	}

	if err := s.validateCheckout(&input); err != nil {
		logger.Warn("Checkout validation failed", map[string]interface{}{
			"owner": owner.String(),
			"error": err.Error(),
		})
		return nil, err
	}

	for _, line := range snapshot.Lines {
		if err := checkStock(line.ProductID, line.Stock, line.Quantity); err != nil {
			logger.Warn("Checkout failed: insufficient stock", map[string]interface{}{
				"owner":      owner.String(),
				"product_id": line.ProductID,
				"requested":  line.Quantity,
				"stock":      line.Stock,
			})
			return nil, err
		}
	}

	order := &model.Order{
		CustomerName:    input.Name,
		CustomerEmail:   input.Email,
		CustomerPhone:   strings.TrimSpace(input.Phone),
		CustomerAddress: input.Address,
		DeliveryMethod:  input.DeliveryMethod,
		PaymentMethod:   input.PaymentMethod,
		Status:          model.OrderStatusPending,
		Total:           snapshot.Total,
	}
	if owner.IsAccount() {
		userID := owner.UserID
		order.UserID = &userID
	}

	if err := s.persist(ctx, owner, order, snapshot); err != nil {
		return nil, err
	}

	if owner.IsGuest() {
		if err := s.guestStore.Clear(ctx, owner.GuestToken); err != nil {
			logger.Error("Failed to clear guest cart after checkout", err, map[string]interface{}{
				"order_id": order.ID,
			})
		}
	}

	logger.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"owner":    owner.String(),
		"total":    order.Total.String(),
		"items":    len(order.OrderItems),
	})

	s.notifier.CartChanged(owner)
	s.sendConfirmation(ctx, order)

	return &CheckoutResult{
		Order:            order,
		TrackingCode:     order.ShortID(),
		ConfirmationPath: ConfirmationPath(order),
	}, nil
}

// persist writes the order, its items and the account cart deletion in one
// transaction. The order id is assigned before any item is written.
func (s *checkoutService) persist(ctx context.Context, owner session.Identity, order *model.Order, snapshot *model.CartView) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during checkout, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"owner": owner.String(),
			})
			err = fmt.Errorf("checkout aborted: %v", r)
		}
	}()

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		tx.Rollback()
		return err
	}

	items := make([]model.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, model.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	if err := s.orderRepo.WithTx(tx).CreateItems(ctx, items); err != nil {
		tx.Rollback()
		return err
	}

	if owner.IsAccount() {
		if err := s.cartRepo.WithTx(tx).DeleteByUserID(ctx, owner.UserID); err != nil {
			tx.Rollback()
			logger.Error("Failed to clear cart during checkout", err, map[string]interface{}{
				"user_id": owner.UserID,
			})
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit checkout transaction", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return err
	}

	for i := range items {
		for _, line := range snapshot.Lines {
			if line.ProductID == items[i].ProductID {
				items[i].Product = model.Product{ID: line.ProductID, Name: line.Name, ImageURL: line.ImageURL, Size: line.Size}
				break
			}
		}
	}
	order.OrderItems = items
	return nil
}

func (s *checkoutService) sendConfirmation(ctx context.Context, order *model.Order) {
	data := mailer.OrderConfirmationData{
		CustomerName:   order.CustomerName,
		TrackingCode:   order.ShortID(),
		Currency:       s.opts.Currency,
		Total:          order.Total.StringFixed(2),
		DeliveryMethod: string(order.DeliveryMethod),
		PaymentMethod:  string(order.PaymentMethod),
	}
	if s.opts.StorefrontURL != "" {
		data.TrackingURL = s.opts.StorefrontURL + ConfirmationPath(order)
	}
	for _, item := range order.OrderItems {
		data.Lines = append(data.Lines, mailer.OrderLine{
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}

	html, err := mailer.RenderOrderConfirmation(data)
	if err == nil {
		err = s.mail.Send(ctx, order.CustomerEmail, "Order "+order.ShortID()+" received", html)
	}
	if err != nil {
		logger.Warn("Order confirmation email not sent", map[string]interface{}{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

// IsStockError reports whether err came from the stock ceiling.
func IsStockError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrOutOfStock)
}
