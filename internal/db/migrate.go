package db

import (
	"github.com/gosimple/slug"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate runs database migrations
func Migrate(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedCategories(conn); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

var defaultCategories = []string{"Clothing", "Shoes", "Accessories", "Bags"}

// seedCategories creates the storefront navigation categories once.
func seedCategories(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("Categories already seeded, skipping", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	categories := make([]model.Category, 0, len(defaultCategories))
	for _, name := range defaultCategories {
		categories = append(categories, model.Category{Name: name, Slug: slug.Make(name)})
	}
	if err := conn.Create(&categories).Error; err != nil {
		return err
	}

	logger.Info("Categories seeded", map[string]interface{}{
		"total_categories": len(categories),
	})
	return nil
}
