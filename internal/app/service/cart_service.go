package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartNotifier receives a signal after every successful cart write.
type CartNotifier interface {
	CartChanged(owner session.Identity)
}

type noopNotifier struct{}

func (noopNotifier) CartChanged(session.Identity) {}

// MergeResult counts the guest lines folded into an account cart.
type MergeResult struct {
	Merged  int `json:"merged"`
	Dropped int `json:"dropped"`
}

// CartService works on the cart of whichever identity is active. Guest
// and account carts share the same rules.
type CartService interface {
	List(ctx context.Context, owner session.Identity) (*model.CartView, error)
	Total(ctx context.Context, owner session.Identity) (decimal.Decimal, error)
	Add(ctx context.Context, owner session.Identity, productID uint, quantity int) error
	SetQuantity(ctx context.Context, owner session.Identity, lineID uint, quantity int) error
	Remove(ctx context.Context, owner session.Identity, lineID uint) error
	Clear(ctx context.Context, owner session.Identity) error
	MergeGuestCart(ctx context.Context, guestToken string, userID uint) (MergeResult, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	guestStore  storage.GuestCartStorage
	notifier    CartNotifier
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	guestStore storage.GuestCartStorage,
	notifier CartNotifier,
) CartService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		guestStore:  guestStore,
		notifier:    notifier,
	}
}

func (s *cartService) backend(owner session.Identity) (cartBackend, error) {
	switch {
	case owner.IsAccount():
		return accountCart{repo: s.cartRepo, userID: owner.UserID}, nil
	case owner.IsGuest():
		return guestCart{store: s.guestStore, token: owner.GuestToken}, nil
	default:
		return nil, ErrIdentityUnknown
	}
}

func (s *cartService) List(ctx context.Context, owner session.Identity) (*model.CartView, error) {
	b, err := s.backend(owner)
	if err != nil {
		return nil, err
	}

	lines, err := b.lines(ctx)
	if err != nil {
		logger.Error("Failed to read cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, err
	}

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := &model.CartView{Lines: make([]model.CartLine, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			logger.Debug("Skipping cart line for missing product", map[string]interface{}{
				"owner":      owner.String(),
				"product_id": l.ProductID,
			})
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		view.Lines = append(view.Lines, model.CartLine{
			ID:        l.ID,
			ProductID: p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Size:      p.Size,
			Price:     p.Price,
			Stock:     p.Stock,
			Quantity:  l.Quantity,
			Subtotal:  subtotal,
		})
		view.Count += l.Quantity
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}

// Total is recomputed from live prices on every call.
func (s *cartService) Total(ctx context.Context, owner session.Identity) (decimal.Decimal, error) {
	view, err := s.List(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Total, nil
}

func (s *cartService) findProduct(ctx context.Context, productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *cartService) Add(ctx context.Context, owner session.Identity, productID uint, quantity int) error {
	b, err := s.backend(owner)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if err := s.addLine(ctx, b, productID, quantity); err != nil {
		logger.Warn("Cart add rejected", map[string]interface{}{
			"owner":      owner.String(),
			"product_id": productID,
			"quantity":   quantity,
			"error":      err.Error(),
		})
		return err
	}

	logger.Info("Item added to cart", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": productID,
		"quantity":   quantity,
	})
	s.notifier.CartChanged(owner)
	return nil
}

// addLine increments an existing line or creates one, under the stock ceiling.
func (s *cartService) addLine(ctx context.Context, b cartBackend, productID uint, quantity int) error {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return err
	}

	existing, err := b.findByProduct(ctx, productID)
	if err != nil {
		return err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if err := checkStock(productID, product.Stock, requested); err != nil {
		return err
	}

	if existing != nil {
		return b.setQuantity(ctx, *existing, requested)
	}
	return b.insert(ctx, productID, quantity)
}

func (s *cartService) SetQuantity(ctx context.Context, owner session.Identity, lineID uint, quantity int) error {
	b, err := s.backend(owner)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	line, err := b.find(ctx, lineID)
	if err != nil {
		return err
	}
	product, err := s.findProduct(ctx, line.ProductID)
	if err != nil {
		return err
	}
	if err := checkStock(line.ProductID, product.Stock, quantity); err != nil {
		logger.Warn("Cart quantity change rejected", map[string]interface{}{
			"owner":     owner.String(),
			"line_id":   lineID,
			"requested": quantity,
			"stock":     product.Stock,
		})
		return err
	}

	if err := b.setQuantity(ctx, line, quantity); err != nil {
		return err
	}

	logger.Info("Cart quantity updated", map[string]interface{}{
		"owner":    owner.String(),
		"line_id":  lineID,
		"quantity": quantity,
	})
	s.notifier.CartChanged(owner)
	return nil
}

func (s *cartService) Remove(ctx context.Context, owner session.Identity, lineID uint) error {
	b, err := s.backend(owner)
	if err != nil {
		return err
	}
	if err := b.remove(ctx, lineID); err != nil {
		return err
	}

	logger.Info("Item removed from cart", map[string]interface{}{
		"owner":   owner.String(),
		"line_id": lineID,
	})
	s.notifier.CartChanged(owner)
	return nil
}

func (s *cartService) Clear(ctx context.Context, owner session.Identity) error {
	b, err := s.backend(owner)
	if err != nil {
		return err
	}
	if err := b.clear(ctx); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return err
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"owner": owner.String(),
	})
	s.notifier.CartChanged(owner)
	return nil
}

// MergeGuestCart folds a guest cart into an account cart. Lines that fail
// the stock rule are dropped. The guest namespace is cleared regardless.
func (s *cartService) MergeGuestCart(ctx context.Context, guestToken string, userID uint) (MergeResult, error) {
	var result MergeResult
	guest := guestCart{store: s.guestStore, token: guestToken}
	account := accountCart{repo: s.cartRepo, userID: userID}

	lines, err := guest.lines(ctx)
	if err != nil {
		logger.Error("Failed to read guest cart for merge", err, map[string]interface{}{
			"user_id": userID,
		})
		return result, err
	}
	if len(lines) == 0 {
		return result, nil
	}

	for _, l := range lines {
		if err := s.addLine(ctx, account, l.ProductID, l.Quantity); err != nil {
			result.Dropped++
			logger.Warn("Dropping guest cart line during merge", map[string]interface{}{
				"user_id":    userID,
				"product_id": l.ProductID,
				"quantity":   l.Quantity,
				"error":      err.Error(),
			})
			continue
		}
		result.Merged++
	}

	if err := guest.clear(ctx); err != nil {
		logger.Error("Failed to clear guest cart after merge", err, map[string]interface{}{
			"user_id": userID,
		})
	}

	logger.Info("Guest cart merged", map[string]interface{}{
		"user_id": userID,
		"merged":  result.Merged,
		"dropped": result.Dropped,
	})
	s.notifier.CartChanged(session.AccountIdentity(userID))
	return result, nil
}
