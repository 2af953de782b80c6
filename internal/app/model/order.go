package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string
type DeliveryMethod string
type PaymentMethod string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"

	DeliveryDoorstep DeliveryMethod = "doorstep"
	DeliveryPark     DeliveryMethod = "park"
	DeliveryPickup   DeliveryMethod = "pickup"

	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
)

// ShortIDLength is the number of public id characters used as a tracking code.
const ShortIDLength = 8

func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryDoorstep, DeliveryPark, DeliveryPickup:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentTransfer || m == PaymentCard
}

// Order is immutable after creation except for Status.
type Order struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	PublicID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	UserID          *uint           `gorm:"index" json:"user_id,omitempty"`
	CustomerName    string          `gorm:"not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"not null" json:"customer_email"`
	CustomerPhone   string          `gorm:"not null" json:"customer_phone"`
	CustomerAddress string          `gorm:"type:text" json:"customer_address"`
	DeliveryMethod  DeliveryMethod  `gorm:"type:varchar(20);not null" json:"delivery_method"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status          OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the public id used for tracking links.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.PublicID == "" {
		o.PublicID = uuid.NewString()
	}
	return nil
}

// ShortID is the upper-cased tracking code shown to customers.
func (o *Order) ShortID() string {
	if len(o.PublicID) < ShortIDLength {
		return strings.ToUpper(o.PublicID)
	}
	return strings.ToUpper(o.PublicID[:ShortIDLength])
}

type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is the frozen line amount.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
