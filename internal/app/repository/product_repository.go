package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductFilter struct {
	CategorySlug string
	IDs          []uint
	InStockOnly  bool
	Limit        int
	Offset       int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	BulkCreate(ctx context.Context, products []model.Product, batchSize int) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	FindCategories(ctx context.Context) ([]model.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

// BulkCreate inserts products in batches inside one transaction.
func (r *productRepository) BulkCreate(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&products, batchSize).Error
	})
	if err != nil {
		logger.Error("Failed to bulk create products", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}

	logger.Info("Products bulk created", map[string]interface{}{
		"count": len(products),
	})
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		logLookupError("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the products that still exist; missing ids are skipped.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"ids": ids,
		})
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category": filter.CategorySlug,
		"ids":      len(filter.IDs),
		"limit":    filter.Limit,
	})

	query := r.db.WithContext(ctx).Model(&model.Product{}).Preload("Category")
	if filter.CategorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", filter.CategorySlug)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("products.id IN ?", filter.IDs)
	}
	if filter.InStockOnly {
		query = query.Where("products.stock > 0")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Order("products.created_at DESC, products.id DESC").Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err)
		return nil, err
	}
	return products, nil
}

func (r *productRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"slug": category.Slug,
		})
		return err
	}
	return nil
}

func (r *productRepository) FindCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

func (r *productRepository) FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		logLookupError("Failed to find category by slug", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	return &category, nil
}
