package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candleworks/storefront-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartService manages per-user cart rows
type CartService struct {
	db       *gorm.DB
	catalog  *CatalogService
	shipping ShippingQuoter
}

// NewCartService creates a cart service. shipping may be nil, in which case
// DefaultShippingCost is quoted.
func NewCartService(db *gorm.DB, catalog *CatalogService, shipping ShippingQuoter) *CartService {
	return &CartService{db: db, catalog: catalog, shipping: shipping}
}

// AddToCartInput is one add-to-cart request
type AddToCartInput struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
	ScentID   *uint `json:"scent_id"`
	ColorID   *uint `json:"color_id"`
}

// Cart is a user's cart with computed totals
type Cart struct {
	Items        []models.CartItem `json:"items"`
	ItemCount    int               `json:"item_count"`
	Subtotal     models.Money      `json:"subtotal"`
	ShippingCost models.Money      `json:"shipping_cost"`
	Total        models.Money      `json:"total"`
}

// AddToCart inserts a cart row or, when the same product/scent/color
// selection already exists for the user, adds the quantity to it. The merge is
// a single upsert against idx_cart_selection, so concurrent adds never create
// duplicate rows.
func (s *CartService) AddToCart(ctx context.Context, userID uint, input AddToCartInput) (*models.CartItem, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.findProduct(ctx, s.db, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	selection, err := s.catalog.ResolveSelection(ctx, product, input.ScentID, input.ColorID)
	if err != nil {
		return nil, err
	}

	item := models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  input.Quantity,
		ScentID:   selection.ScentID,
		ColorID:   selection.ColorID,
	}

	db := s.db.WithContext(ctx)
	err = db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "selection_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	var merged models.CartItem
	err = s.preloaded(db).
		Where("user_id = ? AND product_id = ? AND selection_key = ?",
			userID, product.ID, models.SelectionKey(selection.ScentID, selection.ColorID)).
		First(&merged).Error
	if err != nil {
		return nil, fmt.Errorf("reload cart item: %w", err)
	}
	return &merged, nil
}

// UpdateCartItem sets the quantity of a cart row owned by userID. A row owned
// by someone else is reported as not found.
func (s *CartService) UpdateCartItem(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		UpdateColumns(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("update cart item %d: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrCartItemNotFound
	}

	var item models.CartItem
	if err := s.preloaded(db).First(&item, itemID).Error; err != nil {
		return nil, fmt.Errorf("reload cart item %d: %w", itemID, err)
	}
	return &item, nil
}

// RemoveCartItem deletes a cart row owned by userID
func (s *CartService) RemoveCartItem(ctx context.Context, userID, itemID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("remove cart item %d: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart removes every cart row of userID; an empty cart is not an error
func (s *CartService) ClearCart(ctx context.Context, userID uint) error {
	return clearCart(s.db.WithContext(ctx), userID)
}

// GetCart returns the cart rows with products and variants loaded, plus totals
func (s *CartService) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	items, err := loadCartItems(s.preloaded(s.db.WithContext(ctx)), userID)
	if err != nil {
		return nil, err
	}

	cart := &Cart{Items: items}
	for _, item := range items {
		cart.ItemCount += item.Quantity
		cart.Subtotal = cart.Subtotal.Add(item.LineTotal())
	}
	cart.Subtotal = cart.Subtotal.Round2()
	if len(items) > 0 {
		cart.ShippingCost = quoteShipping(s.shipping, cart.Subtotal)
	}
	cart.Total = cart.Subtotal.Add(cart.ShippingCost)
	return cart, nil
}

func (s *CartService) preloaded(db *gorm.DB) *gorm.DB {
	return db.Preload("Product").Preload("Scent").Preload("Color")
}

func loadCartItems(db *gorm.DB, userID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return items, nil
}

func clearCart(db *gorm.DB, userID uint) error {
	if err := db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// removeOrderedRows deletes exactly the cart rows an order was built from,
// each matched on id and the quantity that was ordered
func removeOrderedRows(tx *gorm.DB, userID uint, ordered []models.CartItem) error {
	for _, item := range ordered {
		result := tx.Where("id = ? AND user_id = ? AND quantity = ?", item.ID, userID, item.Quantity).
			Delete(&models.CartItem{})
		if result.Error != nil {
			return fmt.Errorf("remove ordered cart item %d: %w", item.ID, result.Error)
		}
		if result.RowsAffected != 1 {
			return fmt.Errorf("%w: item %d", ErrCartChanged, item.ID)
		}
	}
	return nil
}

func quoteShipping(quoter ShippingQuoter, subtotal models.Money) models.Money {
	if quoter == nil {
		return DefaultShippingCost
	}
	return quoter.QuoteShipping(subtotal)
}

// isNotFound reports whether err means the row does not exist
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
