package services

import (
	"context"
	"fmt"

	"github.com/candleworks/storefront-api/models"
	"gorm.io/gorm"
)

// Pagination defaults for order listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// OrderService creates orders from carts or admin input and serves them back
type OrderService struct {
	db       *gorm.DB
	shipping ShippingQuoter
}

// NewOrderService creates an order service. shipping may be nil.
func NewOrderService(db *gorm.DB, shipping ShippingQuoter) *OrderService {
	return &OrderService{db: db, shipping: shipping}
}

// CustomerDetails is the buyer and delivery block shared by checkout and
// admin orders
type CustomerDetails struct {
	CustomerName       string `json:"customer_name" binding:"required,max=255"`
	CustomerEmail      string `json:"customer_email" binding:"required,email"`
	CustomerPhone      string `json:"customer_phone" binding:"max=50"`
	ShippingAddress    string `json:"shipping_address" binding:"required"`
	ShippingCity       string `json:"shipping_city" binding:"required"`
	ShippingPostalCode string `json:"shipping_postal_code" binding:"required,max=20"`
	ShippingCountry    string `json:"shipping_country" binding:"required"`
	CustomerNote       string `json:"customer_note" binding:"max=2000"`
	Language           string `json:"language"`
	PaymentMethod      string `json:"payment_method" binding:"required"`
	PaymentStatus      string `json:"payment_status"`
}

// CheckoutInput is the body of a checkout request
type CheckoutInput struct {
	CustomerDetails
}

// AdminOrderItem is one line of an admin-entered order
type AdminOrderItem struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
	ScentID   *uint `json:"scent_id"`
	ColorID   *uint `json:"color_id"`
}

// AdminOrderInput is an order entered by an admin on behalf of a user
type AdminOrderInput struct {
	CustomerDetails
	UserID       uint             `json:"user_id" binding:"required"`
	Status       string           `json:"status"`
	ShippingCost *models.Money    `json:"shipping_cost"`
	Items        []AdminOrderItem `json:"items" binding:"required,min=1,dive"`
}

// OrderFilter selects orders for ListOrders. A nil UserID lists every user's orders.
type OrderFilter struct {
	UserID *uint
	Status string
	Page   int
	Limit  int
}

// OrderPage is one page of orders
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// CreateOrder inserts the order header and its items in one transaction.
// Items are stamped with the new order id; nothing is written on failure.
func (s *OrderService) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createOrderTx(tx, order, items)
	})
}

func createOrderTx(tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	if err := tx.Omit("Items").Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = order.ID
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("create order items: %w", err)
	}
	order.Items = items
	return nil
}

// Checkout turns the user's cart into an order. Prices and variant names are
// snapshotted from the catalog. The order is written and the ordered rows
// removed in the same transaction, so a failed order never empties the cart.
// Rows added while checking out stay in the cart; a row whose quantity changed
// or that disappeared aborts the checkout with ErrCartChanged.
func (s *OrderService) Checkout(ctx context.Context, userID uint, input CheckoutInput) (*models.Order, error) {
	language, err := NormalizeLanguage(input.Language)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	cartItems, err := loadCartItems(db.Preload("Product").Preload("Scent").Preload("Color"), userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		if !cartItem.Product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, cartItem.Product.Name)
		}
		item := models.OrderItem{
			ProductID:   cartItem.ProductID,
			ProductName: cartItem.Product.Name,
			Quantity:    cartItem.Quantity,
			Price:       cartItem.Product.Price.Round2(),
		}
		if cartItem.Scent != nil {
			item.ScentID = &cartItem.Scent.ID
			item.ScentName = &cartItem.Scent.Name
		}
		if cartItem.Color != nil {
			item.ColorID = &cartItem.Color.ID
			item.ColorName = &cartItem.Color.Name
		}
		items = append(items, item)
	}

	order := newOrder(userID, input.CustomerDetails, language)
	subtotal := sumOrderItems(items)
	applyTotals(order, subtotal, quoteShipping(s.shipping, subtotal))

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := createOrderTx(tx, order, items); err != nil {
			return err
		}
		return removeOrderedRows(tx, userID, cartItems)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CreateAdminOrder creates an order from an explicit item list on behalf of a user
func (s *OrderService) CreateAdminOrder(ctx context.Context, input AdminOrderInput) (*models.Order, error) {
	language, err := NormalizeLanguage(input.Language)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}
	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, input.UserID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", input.UserID, err)
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		item, err := s.adminOrderItem(db, line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order := newOrder(user.ID, input.CustomerDetails, language)
	order.Status = status
	subtotal := sumOrderItems(items)
	shipping := quoteShipping(s.shipping, subtotal)
	if input.ShippingCost != nil {
		shipping = input.ShippingCost.Round2()
	}
	applyTotals(order, subtotal, shipping)

	if err := s.CreateOrder(ctx, order, items); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) adminOrderItem(db *gorm.DB, line AdminOrderItem) (models.OrderItem, error) {
	if line.Quantity <= 0 {
		return models.OrderItem{}, ErrInvalidQuantity
	}

	var product models.Product
	if err := db.First(&product, line.ProductID).Error; err != nil {
		if isNotFound(err) {
			return models.OrderItem{}, ErrProductNotFound
		}
		return models.OrderItem{}, fmt.Errorf("find product %d: %w", line.ProductID, err)
	}

	item := models.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    line.Quantity,
		Price:       product.Price.Round2(),
	}
	if line.ScentID != nil {
		var scent models.Scent
		if err := db.First(&scent, *line.ScentID).Error; err != nil {
			if isNotFound(err) {
				return models.OrderItem{}, ErrScentNotFound
			}
			return models.OrderItem{}, fmt.Errorf("find scent %d: %w", *line.ScentID, err)
		}
		item.ScentID = &scent.ID
		item.ScentName = &scent.Name
	}
	if line.ColorID != nil {
		var color models.Color
		if err := db.First(&color, *line.ColorID).Error; err != nil {
			if isNotFound(err) {
				return models.OrderItem{}, ErrColorNotFound
			}
			return models.OrderItem{}, fmt.Errorf("find color %d: %w", *line.ColorID, err)
		}
		item.ColorID = &color.ID
		item.ColorName = &color.Name
	}
	return item, nil
}

// GetOrder returns an order with its items. When userID is set, orders of
// other users are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, id uint, userID *uint) (*models.Order, error) {
	order, err := s.findOrder(s.db.WithContext(ctx).Preload("Items"), id, userID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) findOrder(db *gorm.DB, id uint, userID *uint) (*models.Order, error) {
	query := db.Where("id = ?", id)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &order, nil
}

// ListOrders returns a page of orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		if !models.IsValidOrderStatus(filter.Status) {
			return nil, ErrInvalidStatus
		}
		query = query.Where("status = ?", filter.Status)
	}
	// count and page share the filters
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	orders := []models.Order{}
	err := query.Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus replaces the order status and optionally the payment status.
// Any status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string, paymentStatus *string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	db := s.db.WithContext(ctx)
	order, err := s.findOrder(db, id, nil)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if paymentStatus != nil && *paymentStatus != "" {
		updates["payment_status"] = *paymentStatus
	}
	if err := db.Model(order).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}

	return s.GetOrder(ctx, id, nil)
}

// GetOrderItems returns the items of an order, each carrying its product. A
// product deleted since checkout is replaced by an inactive placeholder built
// from the snapshot.
func (s *OrderService) GetOrderItems(ctx context.Context, orderID uint, userID *uint) ([]models.OrderItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findOrder(db, orderID, userID); err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	var products []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for i := range items {
		if product, ok := byID[items[i].ProductID]; ok {
			items[i].Product = &product
			continue
		}
		items[i].Product = placeholderProduct(items[i])
	}
	return items, nil
}

func placeholderProduct(item models.OrderItem) *models.Product {
	return &models.Product{
		ID:     item.ProductID,
		Name:   item.ProductName,
		Price:  item.Price,
		Active: false,
	}
}

func newOrder(userID uint, details CustomerDetails, language string) *models.Order {
	paymentStatus := details.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}
	return &models.Order{
		UserID:             userID,
		Status:             models.OrderStatusPending,
		PaymentMethod:      details.PaymentMethod,
		PaymentStatus:      paymentStatus,
		CustomerName:       details.CustomerName,
		CustomerEmail:      details.CustomerEmail,
		CustomerPhone:      details.CustomerPhone,
		ShippingAddress:    details.ShippingAddress,
		ShippingCity:       details.ShippingCity,
		ShippingPostalCode: details.ShippingPostalCode,
		ShippingCountry:    details.ShippingCountry,
		CustomerNote:       details.CustomerNote,
		Language:           language,
	}
}

func sumOrderItems(items []models.OrderItem) models.Money {
	var subtotal models.Money
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal.Round2()
}

// applyTotals sets total = subtotal + shipping - discount. Discounts are not
// implemented, so discount is always zero.
func applyTotals(order *models.Order, subtotal, shipping models.Money) {
	order.Subtotal = subtotal
	order.ShippingCost = shipping
	order.DiscountAmount = models.Money{}
	order.Total = subtotal.Add(shipping).Sub(order.DiscountAmount).Round2()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
