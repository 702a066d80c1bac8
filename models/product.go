package models

import (
	"time"
)

// Product represents a candle in the catalog
type Product struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"not null" json:"name"`
	Description         string    `gorm:"type:text" json:"description"`
	Price               Money     `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock               int       `gorm:"not null;default:0" json:"stock"`
	Featured            bool      `gorm:"not null;default:false" json:"featured"`
	HasColorOptions     bool      `gorm:"not null;default:false" json:"has_color_options"`
	AllowMultipleColors bool      `gorm:"not null;default:false" json:"allow_multiple_colors"`
	Active              bool      `gorm:"not null;index" json:"active"`
	Dimensions          string    `json:"dimensions"`
	Weight              string    `json:"weight"`
	Materials           string    `json:"materials"`
	BurnTime            string    `json:"burn_time"`
	Instructions        string    `gorm:"type:text" json:"instructions"`
	Maintenance         string    `gorm:"type:text" json:"maintenance"`
	ImageKey            *string   `json:"-"`                            // nullable, S3 key of the product image
	ImageURL            *string   `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	Scents              []Scent   `gorm:"-" json:"scents,omitempty"`    // loaded through product_scents
	Colors              []Color   `gorm:"-" json:"colors,omitempty"`    // loaded through product_colors
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Scent is a selectable fragrance shared between products
type Scent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Scent model
func (Scent) TableName() string {
	return "scents"
}

// Color is a selectable wax color shared between products
type Color struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	HexValue  string    `gorm:"size:7;not null" json:"hex_value"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Color model
func (Color) TableName() string {
	return "colors"
}

// ProductScent links a product to a scent, unique per pair
type ProductScent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_scent" json:"product_id"`
	ScentID   uint      `gorm:"not null;uniqueIndex:idx_product_scent;index" json:"scent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the ProductScent model
func (ProductScent) TableName() string {
	return "product_scents"
}

// ProductColor links a product to a color, unique per pair
type ProductColor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_color" json:"product_id"`
	ColorID   uint      `gorm:"not null;uniqueIndex:idx_product_color;index" json:"color_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the ProductColor model
func (ProductColor) TableName() string {
	return "product_colors"
}
