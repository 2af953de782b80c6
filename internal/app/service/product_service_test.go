package service

import (
	"context"
	"testing"

	"github.com/gosimple/slug"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_ListByCategory(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.productRepo)
	ctx := context.Background()

	shoes := &model.Category{Name: "Running Shoes", Slug: slug.Make("Running Shoes")}
	require.NoError(t, f.db.Create(shoes).Error)
	require.NoError(t, f.db.Create(&model.Product{Name: "Racer", Price: decimal.NewFromInt(9000), Stock: 3, CategoryID: &shoes.ID}).Error)
	f.createProduct(t, "Loose item", 100, 1)

	products, err := svc.List(ctx, ProductListOptions{CategorySlug: "running-shoes"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Racer", products[0].Name)
	require.NotNil(t, products[0].Category)
	assert.Equal(t, "running-shoes", products[0].Category.Slug)

	all, err := svc.List(ctx, ProductListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, ProductListOptions{CategorySlug: "hats"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestProductService_GetAndListByIDs(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.productRepo)
	ctx := context.Background()
	a := f.createProduct(t, "A", 1000, 1)
	b := f.createProduct(t, "B", 2000, 0)

	got, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	_, err = svc.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	products, err := svc.ListByIDs(ctx, []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	inStock, err := svc.List(ctx, ProductListOptions{InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, a.ID, inStock[0].ID)
}
