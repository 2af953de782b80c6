package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const maxProductPageSize = 100

type ProductListOptions struct {
	CategorySlug string
	IDs          []uint
	InStockOnly  bool
	Limit        int
	Offset       int
}

type ProductService interface {
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	List(ctx context.Context, opts ProductListOptions) ([]model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// ListByIDs returns the products that exist; unknown ids are skipped.
func (s *productService) ListByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	return s.productRepo.FindByIDs(ctx, ids)
}

// List filters by category slug. An unknown slug is ErrCategoryNotFound
// rather than an empty page.
func (s *productService) List(ctx context.Context, opts ProductListOptions) ([]model.Product, error) {
	if opts.CategorySlug != "" {
		if _, err := s.productRepo.FindCategoryBySlug(ctx, opts.CategorySlug); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Debug("Unknown category requested", map[string]interface{}{
					"slug": opts.CategorySlug,
				})
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
	}

	limit := opts.Limit
	if limit <= 0 || limit > maxProductPageSize {
		limit = maxProductPageSize
	}

	return s.productRepo.FindWithFilter(ctx, repository.ProductFilter{
		CategorySlug: opts.CategorySlug,
		IDs:          opts.IDs,
		InStockOnly:  opts.InStockOnly,
		Limit:        limit,
		Offset:       opts.Offset,
	})
}

func (s *productService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.productRepo.FindCategories(ctx)
}
