package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is an account cart line. (user_id, product_id) is unique.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_owner_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_owner_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// GuestCartLine is a guest cart line as held in device storage.
type GuestCartLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CartLine is a cart line joined with live product data.
type CartLine struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Size      *string         `json:"size,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartView is the rendered cart of one identity.
type CartView struct {
	Lines []CartLine      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}
