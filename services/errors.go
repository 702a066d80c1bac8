package services

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidLanguage     = errors.New("unsupported language")
	ErrScentNotAvailable   = errors.New("scent is not available for this product")
	ErrColorNotAvailable   = errors.New("color is not available for this product")
	ErrScentRequired       = errors.New("a scent must be selected for this product")
	ErrColorRequired       = errors.New("a color must be selected for this product")
	ErrProductInactive     = errors.New("product is not available")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoInvoiceItems      = errors.New("invoice needs at least one item")
	ErrInvalidSettingKey   = errors.New("invalid setting key")
	ErrInvalidSettingValue = errors.New("invalid setting value")

	// -- Resource State --
	ErrProductNotFound      = errors.New("product not found")
	ErrScentNotFound        = errors.New("scent not found")
	ErrColorNotFound        = errors.New("color not found")
	ErrProductScentNotFound = errors.New("scent is not linked to this product")
	ErrProductColorNotFound = errors.New("color is not linked to this product")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartChanged          = errors.New("cart changed during checkout")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrSettingNotFound      = errors.New("setting not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateName        = errors.New("name already exists")

	// -- External Systems --
	ErrStorageNotConfigured = errors.New("object storage is not configured")
)
