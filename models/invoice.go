package models

import (
	"time"
)

// Invoice is derived from an order (at most one per order, enforced by the
// unique index on order_id) or entered manually by an admin.
type Invoice struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	InvoiceNumber      string        `gorm:"uniqueIndex;not null" json:"invoice_number"`
	OrderID            *uint         `gorm:"uniqueIndex" json:"order_id"`
	UserID             *uint         `gorm:"index" json:"user_id"`
	CustomerName       string        `gorm:"not null" json:"customer_name"`
	CustomerEmail      string        `json:"customer_email"`
	CustomerPhone      string        `json:"customer_phone"`
	CustomerAddress    string        `json:"customer_address"`
	CustomerCity       string        `json:"customer_city"`
	CustomerPostalCode string        `json:"customer_postal_code"`
	CustomerCountry    string        `json:"customer_country"`
	Subtotal           Money         `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax                Money         `gorm:"type:decimal(10,2);not null" json:"tax"`
	ShippingCost       Money         `gorm:"type:decimal(10,2);not null" json:"shipping_cost"`
	Total              Money         `gorm:"type:decimal(10,2);not null" json:"total"`
	Language           string        `gorm:"size:2;not null;default:'hr'" json:"language"`
	PaymentMethod      string        `json:"payment_method"`
	PDFKey             *string       `json:"-"` // nullable, object key of the archived PDF
	IssuedAt           time.Time     `json:"issued_at"`
	Items              []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is a snapshot line of an invoice. Variants are plain strings.
type InvoiceItem struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	InvoiceID     uint   `gorm:"not null;index" json:"invoice_id"`
	ProductName   string `gorm:"not null" json:"product_name"`
	Quantity      int    `gorm:"not null" json:"quantity"`
	Price         Money  `gorm:"type:decimal(10,2);not null" json:"price"`
	SelectedScent string `json:"selected_scent,omitempty"`
	SelectedColor string `json:"selected_color,omitempty"`
}

// TableName specifies the table name for the InvoiceItem model
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// LineTotal returns price * quantity
func (i InvoiceItem) LineTotal() Money {
	return i.Price.Times(i.Quantity)
}

// InvoiceCounter holds the last issued invoice sequence per year
type InvoiceCounter struct {
	Year      int `gorm:"primaryKey;autoIncrement:false"`
	LastValue int `gorm:"not null;default:0"`
}

// TableName specifies the table name for the InvoiceCounter model
func (InvoiceCounter) TableName() string {
	return "invoice_counters"
}
