package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CartItem is one selection in a user's cart. At most one row exists per
// (user, product, scent, color) combination, enforced by idx_cart_selection.
type CartItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_cart_selection" json:"user_id"`
	ProductID    uint      `gorm:"not null;uniqueIndex:idx_cart_selection;index" json:"product_id"`
	SelectionKey string    `gorm:"not null;size:64;uniqueIndex:idx_cart_selection" json:"-"`
	Quantity     int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	ScentID      *uint     `json:"scent_id"`
	ColorID      *uint     `json:"color_id"`
	Product      Product   `gorm:"foreignKey:ProductID" json:"product"`
	Scent        *Scent    `gorm:"foreignKey:ScentID" json:"scent,omitempty"`
	Color        *Color    `gorm:"foreignKey:ColorID" json:"color,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CartItem model
func (CartItem) TableName() string {
	return "cart_items"
}

// BeforeSave keeps SelectionKey in sync with the variant ids
func (c *CartItem) BeforeSave(tx *gorm.DB) error {
	c.SelectionKey = SelectionKey(c.ScentID, c.ColorID)
	return nil
}

// LineTotal returns price * quantity for a row with its product loaded
func (c CartItem) LineTotal() Money {
	return c.Product.Price.Times(c.Quantity)
}

// SelectionKey normalizes the nullable variant ids into a non-null key.
// A nil id maps to 0, which no real row uses, so "no scent" never collides
// with a concrete scent.
func SelectionKey(scentID, colorID *uint) string {
	return fmt.Sprintf("%d:%d", derefID(scentID), derefID(colorID))
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
