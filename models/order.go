package models

import (
	"time"
)

// Order statuses. Any status may be replaced by any other; there is no
// transition graph.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// OrderStatuses lists every valid order status
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsValidOrderStatus reports whether status belongs to OrderStatuses
func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const PaymentStatusPending = "pending"

// Order is the immutable header of a purchase. Only Status and PaymentStatus
// change after creation.
type Order struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	UserID             uint        `gorm:"not null;index" json:"user_id"`
	Status             string      `gorm:"not null;default:'pending';index" json:"status"`
	Subtotal           Money       `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	ShippingCost       Money       `gorm:"type:decimal(10,2);not null" json:"shipping_cost"`
	DiscountAmount     Money       `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	Total              Money       `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod      string      `gorm:"not null" json:"payment_method"`
	PaymentStatus      string      `gorm:"not null;default:'pending'" json:"payment_status"`
	CustomerName       string      `gorm:"not null" json:"customer_name"`
	CustomerEmail      string      `gorm:"not null" json:"customer_email"`
	CustomerPhone      string      `json:"customer_phone"`
	ShippingAddress    string      `gorm:"not null" json:"shipping_address"`
	ShippingCity       string      `gorm:"not null" json:"shipping_city"`
	ShippingPostalCode string      `gorm:"not null" json:"shipping_postal_code"`
	ShippingCountry    string      `gorm:"not null" json:"shipping_country"`
	CustomerNote       string      `gorm:"type:text" json:"customer_note"`
	Language           string      `gorm:"size:2;not null;default:'hr'" json:"language"`
	Items              []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a snapshot of a purchased line. Name, price and variant names
// are copied at checkout and never joined live, so catalog edits or deletions
// do not change historical orders.
type OrderItem struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	OrderID     uint     `gorm:"not null;index" json:"order_id"`
	ProductID   uint     `gorm:"not null;index" json:"product_id"`
	ProductName string   `gorm:"not null" json:"product_name"`
	Quantity    int      `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price       Money    `gorm:"type:decimal(10,2);not null" json:"price"`
	ScentID     *uint    `json:"scent_id"`
	ScentName   *string  `json:"scent_name"`
	ColorID     *uint    `json:"color_id"`
	ColorName   *string  `json:"color_name"`
	Product     *Product `gorm:"-" json:"product,omitempty"` // filled on read, placeholder when deleted
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns price * quantity
func (i OrderItem) LineTotal() Money {
	return i.Price.Times(i.Quantity)
}
