package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products; Slug is the public lookup key.
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Product is read-only to the cart and checkout workflow.
type Product struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	CategoryID    *uint            `gorm:"index" json:"category_id,omitempty"`
	Name          string           `gorm:"not null" json:"name"`
	Slug          string           `gorm:"index" json:"slug"`
	Description   string           `gorm:"type:text" json:"description"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	OriginalPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"original_price,omitempty"`
	Stock         int              `gorm:"not null;default:0" json:"stock"`
	Size          *string          `gorm:"type:varchar(50)" json:"size,omitempty"`
	ImageURL      string           `json:"image_url"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// InStock reports whether at least one unit can be sold.
func (p *Product) InStock() bool {
	return p.Stock > 0
}
