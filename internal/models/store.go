package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Price       float64   `gorm:"not null" json:"price"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderPaid       OrderStatus = "PAID"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// claimVerifiableOrderStatuses are the order states in which pickup staff may
// verify a claim code.
var claimVerifiableOrderStatuses = map[OrderStatus]bool{
	OrderPaid:       true,
	OrderProcessing: true,
	OrderDelivered:  true,
}

// AllowsClaimVerification reports whether a claim on an order in this status
// may be verified or have its code issued.
func (s OrderStatus) AllowsClaimVerification() bool {
	return claimVerifiableOrderStatuses[s]
}

// ClaimVerifiableOrderStatuses lists the statuses AllowsClaimVerification accepts.
func ClaimVerifiableOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPaid, OrderProcessing, OrderDelivered}
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderDelivered, OrderCompleted, OrderCancelled},
	OrderProcessing: {OrderDelivered, OrderCompleted, OrderCancelled},
	OrderDelivered:  {OrderCompleted},
}

// CanMoveTo reports whether an order may go from s to next.
func (s OrderStatus) CanMoveTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryPickup DeliveryMethod = "PICKUP"
	DeliveryHome   DeliveryMethod = "DELIVERY"
)

type Order struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64          `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	Total           float64        `json:"total"`
	Status          OrderStatus    `gorm:"size:16;index;default:PENDING" json:"status"`
	DeliveryMethod  DeliveryMethod `gorm:"size:16" json:"delivery_method"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	PickupCenterID  *int64         `gorm:"index" json:"pickup_center_id,omitempty"`
	PaymentMethod   PaymentMethod  `gorm:"size:16" json:"payment_method"`
	Reference       string         `gorm:"uniqueIndex;size:64" json:"reference"`
	Items           []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Claim           *Claim         `gorm:"foreignKey:OrderID" json:"claim,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64   `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"order_id"`
	ProductID int64   `gorm:"index;not null" json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

func GetActiveProducts(tx *gorm.DB) ([]Product, error) {
	if tx == nil {
		tx = db.DB
	}

	var products []Product
	if err := tx.Where("active = ?", true).Order("name").Find(&products).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return products, nil
}

// GetUserOrder loads an order owned by userID with its items and claim.
func GetUserOrder(tx *gorm.DB, userID, orderID int64) (*Order, error) {
	if tx == nil {
		tx = db.DB
	}

	var order Order
	err := tx.Preload("Items").Preload("Claim").
		Where("user_id = ?", userID).
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}
