package repository

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProductRepository_FindWithFilter(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	shoes := &model.Category{Name: "Shoes", Slug: "shoes"}
	bags := &model.Category{Name: "Bags", Slug: "bags"}
	require.NoError(t, repo.CreateCategory(ctx, shoes))
	require.NoError(t, repo.CreateCategory(ctx, bags))

	require.NoError(t, repo.Create(ctx, &model.Product{Name: "Sneaker", CategoryID: &shoes.ID, Price: decimal.NewFromInt(5000), Stock: 3}))
	require.NoError(t, repo.Create(ctx, &model.Product{Name: "Sandal", CategoryID: &shoes.ID, Price: decimal.NewFromInt(2000), Stock: 0}))
	require.NoError(t, repo.Create(ctx, &model.Product{Name: "Tote", CategoryID: &bags.ID, Price: decimal.NewFromInt(3000), Stock: 1}))

	products, err := repo.FindWithFilter(ctx, ProductFilter{CategorySlug: "shoes"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	for _, p := range products {
		require.NotNil(t, p.Category)
		assert.Equal(t, "shoes", p.Category.Slug)
	}

	inStock, err := repo.FindWithFilter(ctx, ProductFilter{CategorySlug: "shoes", InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "Sneaker", inStock[0].Name)

	all, err := repo.FindWithFilter(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProductRepository_FindByIDs(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	a := createProduct(t, testDB, "A", 100, 1)
	b := createProduct(t, testDB, "B", 200, 1)

	products, err := repo.FindByIDs(ctx, []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_FindCategoryBySlug(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, &model.Category{Name: "Hats", Slug: "hats"}))

	category, err := repo.FindCategoryBySlug(ctx, "hats")
	require.NoError(t, err)
	assert.Equal(t, "Hats", category.Name)

	_, err = repo.FindCategoryBySlug(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_BulkCreate(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	products := []model.Product{
		{Name: "Tee", Slug: "tee", Price: decimal.NewFromInt(1500), Stock: 3},
		{Name: "Polo", Slug: "polo", Price: decimal.NewFromInt(2500), Stock: 1},
		{Name: "Vest", Slug: "vest", Price: decimal.NewFromInt(900), Stock: 0},
	}
	require.NoError(t, repo.BulkCreate(ctx, products, 2))
	require.NoError(t, repo.BulkCreate(ctx, nil, 2))

	var count int64
	require.NoError(t, testDB.Model(&model.Product{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
