package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/storage"
	"gorm.io/gorm"
)

// cartLine is a stored line before it is joined with product data.
type cartLine struct {
	ID        uint
	ProductID uint
	Quantity  int
}

// cartBackend is one owner's cart in its persistence layer.
type cartBackend interface {
	lines(ctx context.Context) ([]cartLine, error)
	find(ctx context.Context, lineID uint) (cartLine, error)
	findByProduct(ctx context.Context, productID uint) (*cartLine, error)
	insert(ctx context.Context, productID uint, quantity int) error
	setQuantity(ctx context.Context, line cartLine, quantity int) error
	remove(ctx context.Context, lineID uint) error
	clear(ctx context.Context) error
}

type accountCart struct {
	repo   repository.CartRepository
	userID uint
}

func (a accountCart) lines(ctx context.Context) ([]cartLine, error) {
	items, err := a.repo.FindByUserID(ctx, a.userID)
	if err != nil {
		return nil, err
	}
	out := make([]cartLine, 0, len(items))
	for _, item := range items {
		out = append(out, cartLine{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out, nil
}

func (a accountCart) find(ctx context.Context, lineID uint) (cartLine, error) {
	item, err := a.repo.FindByUserAndID(ctx, a.userID, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cartLine{}, ErrCartItemNotFound
		}
		return cartLine{}, err
	}
	return cartLine{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}, nil
}

func (a accountCart) findByProduct(ctx context.Context, productID uint) (*cartLine, error) {
	item, err := a.repo.FindByUserAndProduct(ctx, a.userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cartLine{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}, nil
}

func (a accountCart) insert(ctx context.Context, productID uint, quantity int) error {
	return a.repo.Create(ctx, &model.CartItem{UserID: a.userID, ProductID: productID, Quantity: quantity})
}

func (a accountCart) setQuantity(ctx context.Context, line cartLine, quantity int) error {
	err := a.repo.UpdateQuantity(ctx, line.ID, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (a accountCart) remove(ctx context.Context, lineID uint) error {
	err := a.repo.Delete(ctx, a.userID, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (a accountCart) clear(ctx context.Context) error {
	return a.repo.DeleteByUserID(ctx, a.userID)
}

// guestCart keeps lines in device storage. A guest line's id is its
// product id, which keeps (owner, product) unique by construction.
type guestCart struct {
	store storage.GuestCartStorage
	token string
}

func (g guestCart) read(ctx context.Context) ([]model.GuestCartLine, error) {
	return g.store.Read(ctx, g.token)
}

func (g guestCart) lines(ctx context.Context) ([]cartLine, error) {
	stored, err := g.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cartLine, 0, len(stored))
	for _, l := range stored {
		out = append(out, cartLine{ID: l.ProductID, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out, nil
}

func (g guestCart) find(ctx context.Context, lineID uint) (cartLine, error) {
	line, err := g.findByProduct(ctx, lineID)
	if err != nil {
		return cartLine{}, err
	}
	if line == nil {
		return cartLine{}, ErrCartItemNotFound
	}
	return *line, nil
}

func (g guestCart) findByProduct(ctx context.Context, productID uint) (*cartLine, error) {
	stored, err := g.read(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range stored {
		if l.ProductID == productID {
			return &cartLine{ID: l.ProductID, ProductID: l.ProductID, Quantity: l.Quantity}, nil
		}
	}
	return nil, nil
}

// insert adds quantity to an existing line for the product, so a concurrent
// add from another tab cannot leave two lines for one product.
func (g guestCart) insert(ctx context.Context, productID uint, quantity int) error {
	return g.store.Update(ctx, g.token, func(stored []model.GuestCartLine) ([]model.GuestCartLine, error) {
		for i := range stored {
			if stored[i].ProductID == productID {
				stored[i].Quantity += quantity
				return stored, nil
			}
		}
		return append(stored, model.GuestCartLine{ProductID: productID, Quantity: quantity}), nil
	})
}

func (g guestCart) setQuantity(ctx context.Context, line cartLine, quantity int) error {
	return g.store.Update(ctx, g.token, func(stored []model.GuestCartLine) ([]model.GuestCartLine, error) {
		for i := range stored {
			if stored[i].ProductID == line.ProductID {
				stored[i].Quantity = quantity
				return stored, nil
			}
		}
		return nil, ErrCartItemNotFound
	})
}

func (g guestCart) remove(ctx context.Context, lineID uint) error {
	return g.store.Update(ctx, g.token, func(stored []model.GuestCartLine) ([]model.GuestCartLine, error) {
		kept := stored[:0]
		found := false
		for _, l := range stored {
			if l.ProductID == lineID {
				found = true
				continue
			}
			kept = append(kept, l)
		}
		if !found {
			return nil, ErrCartItemNotFound
		}
		return kept, nil
	})
}

func (g guestCart) clear(ctx context.Context) error {
	return g.store.Clear(ctx, g.token)
}
