package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoicePDFPrefix is the object key prefix for archived invoice PDFs
const InvoicePDFPrefix = "invoices"

// DocumentStore archives rendered documents. S3Interface satisfies it.
type DocumentStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	DeleteFile(ctx context.Context, key string) error
}

// InvoiceService derives invoices from orders, numbers them and renders PDFs
type InvoiceService struct {
	db       *gorm.DB
	renderer *InvoiceRenderer
	store    DocumentStore
	contact  ContactSource
	now      func() time.Time
}

// NewInvoiceService creates an invoice service. store and contact may be nil.
func NewInvoiceService(db *gorm.DB, renderer *InvoiceRenderer, store DocumentStore, contact ContactSource) *InvoiceService {
	if renderer == nil {
		renderer = NewInvoiceRenderer()
	}
	return &InvoiceService{
		db:       db,
		renderer: renderer,
		store:    store,
		contact:  contact,
		now:      time.Now,
	}
}

// ManualInvoiceItem is one line of an admin-entered invoice
type ManualInvoiceItem struct {
	ProductName   string       `json:"product_name" binding:"required"`
	Quantity      int          `json:"quantity" binding:"required,gt=0"`
	Price         models.Money `json:"price"`
	SelectedScent string       `json:"selected_scent"`
	SelectedColor string       `json:"selected_color"`
}

// ManualInvoiceInput is an invoice entered by an admin without an order
type ManualInvoiceInput struct {
	UserID             *uint               `json:"user_id"`
	CustomerName       string              `json:"customer_name" binding:"required"`
	CustomerEmail      string              `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone      string              `json:"customer_phone"`
	CustomerAddress    string              `json:"customer_address"`
	CustomerCity       string              `json:"customer_city"`
	CustomerPostalCode string              `json:"customer_postal_code"`
	CustomerCountry    string              `json:"customer_country"`
	Language           string              `json:"language"`
	PaymentMethod      string              `json:"payment_method"`
	ShippingCost       *models.Money       `json:"shipping_cost"`
	IssuedAt           *time.Time          `json:"issued_at"`
	Items              []ManualInvoiceItem `json:"items" binding:"required,min=1,dive"`
}

// RenderedPDF is a rendered invoice ready for download
type RenderedPDF struct {
	Filename string
	Content  []byte
}

// GenerateForOrder returns the invoice of an order, creating it on first call.
// created reports whether this call inserted it. If a concurrent call wins the
// insert, the unique index on order_id rejects this one and the winner's
// invoice is returned, so every caller sees the same invoice.
func (s *InvoiceService) GenerateForOrder(ctx context.Context, orderID uint, userID *uint) (invoice *models.Invoice, created bool, err error) {
	db := s.db.WithContext(ctx)

	order, err := s.loadOrder(db, orderID, userID)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.findByOrder(db, order.ID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, false, err
	}

	invoice = invoiceFromOrder(order, s.now())
	err = db.Transaction(func(tx *gorm.DB) error {
		return s.insert(tx, invoice)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, findErr := s.findByOrder(db, order.ID)
		if findErr == nil {
			logger.FromCtx(ctx).Info("invoice already generated concurrently",
				zap.Uint("order_id", order.ID), zap.String("invoice_number", existing.InvoiceNumber))
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("generate invoice for order %d: %w", order.ID, err)
	}
	if err != nil {
		return nil, false, fmt.Errorf("generate invoice for order %d: %w", order.ID, err)
	}

	s.archive(ctx, invoice)
	return invoice, true, nil
}

// CreateManualInvoice creates an invoice from admin input with no order behind it.
// Shipping defaults to DefaultShippingCost.
func (s *InvoiceService) CreateManualInvoice(ctx context.Context, input ManualInvoiceInput) (*models.Invoice, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoInvoiceItems
	}
	language, err := NormalizeLanguage(input.Language)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	if input.IssuedAt != nil && !input.IssuedAt.IsZero() {
		issuedAt = *input.IssuedAt
	}

	invoice := &models.Invoice{
		UserID:             input.UserID,
		CustomerName:       input.CustomerName,
		CustomerEmail:      input.CustomerEmail,
		CustomerPhone:      input.CustomerPhone,
		CustomerAddress:    input.CustomerAddress,
		CustomerCity:       input.CustomerCity,
		CustomerPostalCode: input.CustomerPostalCode,
		CustomerCountry:    input.CustomerCountry,
		Language:           language,
		PaymentMethod:      input.PaymentMethod,
		IssuedAt:           issuedAt,
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ProductName:   line.ProductName,
			Quantity:      line.Quantity,
			Price:         line.Price.Round2(),
			SelectedScent: line.SelectedScent,
			SelectedColor: line.SelectedColor,
		})
	}

	shipping := DefaultShippingCost
	if input.ShippingCost != nil {
		shipping = input.ShippingCost.Round2()
	}
	ApplyInvoiceTotals(invoice, shipping)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.insert(tx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.archive(ctx, invoice)
	return invoice, nil
}

// GetInvoice returns an invoice with its items. When userID is set, invoices
// of other users are reported as not found.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uint, userID *uint) (*models.Invoice, error) {
	query := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ?", id)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var invoice models.Invoice
	if err := query.First(&invoice).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice %d: %w", id, err)
	}
	return &invoice, nil
}

// ListInvoices returns invoices newest first. A nil userID lists all invoices.
func (s *InvoiceService) ListInvoices(ctx context.Context, userID *uint) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Preload("Items")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	invoices := []models.Invoice{}
	if err := query.Order("issued_at DESC").Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// DeleteInvoice removes an invoice, its items and its archived PDF. The order
// may then be invoiced again.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uint) error {
	invoice, err := s.GetInvoice(ctx, id, nil)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, invoice.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}

	if invoice.PDFKey != nil && s.store != nil {
		if err := s.store.DeleteFile(ctx, *invoice.PDFKey); err != nil {
			logger.FromCtx(ctx).Warn("failed to delete archived invoice pdf",
				zap.Uint("invoice_id", invoice.ID), zap.Error(err))
		}
	}
	return nil
}

// InvoicePDF renders a saved invoice
func (s *InvoiceService) InvoicePDF(ctx context.Context, id uint, userID *uint) (*RenderedPDF, error) {
	invoice, err := s.GetInvoice(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.render(NewInvoiceDocument(invoice, s.seller()))
}

// OrderInvoicePDF renders the saved invoice of an order or, when none exists
// yet, a preview carrying a synthetic number
func (s *InvoiceService) OrderInvoicePDF(ctx context.Context, orderID uint, userID *uint) (*RenderedPDF, error) {
	db := s.db.WithContext(ctx)
	order, err := s.loadOrder(db, orderID, userID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.findByOrder(db, order.ID)
	switch {
	case err == nil:
		return s.render(NewInvoiceDocument(invoice, s.seller()))
	case errors.Is(err, ErrInvoiceNotFound):
		preview := invoiceFromOrder(order, s.now())
		preview.InvoiceNumber = utils.PreviewInvoiceNumber(order.ID)
		doc := NewInvoiceDocument(preview, s.seller())
		doc.Preview = true
		return s.render(doc)
	default:
		return nil, err
	}
}

// ApplyInvoiceTotals sets subtotal = sum(price * quantity), tax = 0 and
// total = subtotal + shipping
func ApplyInvoiceTotals(invoice *models.Invoice, shipping models.Money) {
	var subtotal models.Money
	for _, item := range invoice.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	invoice.Subtotal = subtotal.Round2()
	invoice.Tax = models.Money{}
	invoice.ShippingCost = shipping.Round2()
	invoice.Total = invoice.Subtotal.Add(invoice.ShippingCost).Round2()
}

// insert numbers and inserts an invoice. It must run inside a transaction so
// the counter increment rolls back with a failed insert.
func (s *InvoiceService) insert(tx *gorm.DB, invoice *models.Invoice) error {
	number, err := nextInvoiceNumber(tx, invoice.IssuedAt.Year())
	if err != nil {
		return err
	}
	invoice.InvoiceNumber = number
	return tx.Create(invoice).Error
}

// nextInvoiceNumber increments the counter row of year and formats the result.
// The UPDATE locks the row until the surrounding transaction ends, so
// concurrent callers receive distinct sequence values.
func nextInvoiceNumber(tx *gorm.DB, year int) (string, error) {
	counter := models.InvoiceCounter{Year: year}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return "", fmt.Errorf("ensure invoice counter: %w", err)
	}

	err := tx.Model(&models.InvoiceCounter{}).
		Where("year = ?", year).
		UpdateColumn("last_value", gorm.Expr("last_value + ?", 1)).Error
	if err != nil {
		return "", fmt.Errorf("increment invoice counter: %w", err)
	}

	if err := tx.Where("year = ?", year).First(&counter).Error; err != nil {
		return "", fmt.Errorf("read invoice counter: %w", err)
	}
	return utils.FormatInvoiceNumber(year, counter.LastValue), nil
}

func (s *InvoiceService) loadOrder(db *gorm.DB, orderID uint, userID *uint) (*models.Order, error) {
	query := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ?", orderID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", orderID, err)
	}
	return &order, nil
}

func (s *InvoiceService) findByOrder(db *gorm.DB, orderID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("order_id = ?", orderID).First(&invoice).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice for order %d: %w", orderID, err)
	}
	return &invoice, nil
}

func invoiceFromOrder(order *models.Order, issuedAt time.Time) *models.Invoice {
	orderID := order.ID
	userID := order.UserID
	invoice := &models.Invoice{
		OrderID:            &orderID,
		UserID:             &userID,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		CustomerPhone:      order.CustomerPhone,
		CustomerAddress:    order.ShippingAddress,
		CustomerCity:       order.ShippingCity,
		CustomerPostalCode: order.ShippingPostalCode,
		CustomerCountry:    order.ShippingCountry,
		Language:           order.Language,
		PaymentMethod:      order.PaymentMethod,
		IssuedAt:           issuedAt,
	}
	if invoice.Language == "" {
		invoice.Language = DefaultLanguage
	}
	for _, item := range order.Items {
		line := models.InvoiceItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
		if item.ScentName != nil {
			line.SelectedScent = *item.ScentName
		}
		if item.ColorName != nil {
			line.SelectedColor = *item.ColorName
		}
		invoice.Items = append(invoice.Items, line)
	}
	ApplyInvoiceTotals(invoice, order.ShippingCost)
	return invoice
}

func (s *InvoiceService) seller() ContactSettings {
	if s.contact == nil {
		return ContactSettings{}
	}
	return s.contact.Contact()
}

func (s *InvoiceService) render(doc InvoiceDocument) (*RenderedPDF, error) {
	content, err := s.renderer.Render(doc)
	if err != nil {
		return nil, err
	}
	return &RenderedPDF{Filename: s.renderer.Filename(doc), Content: content}, nil
}

// archive uploads the rendered PDF of a new invoice. Failures are logged; the
// invoice stays valid and can always be rendered again.
func (s *InvoiceService) archive(ctx context.Context, invoice *models.Invoice) {
	if s.store == nil {
		return
	}
	log := logger.FromCtx(ctx).With(zap.Uint("invoice_id", invoice.ID), zap.String("invoice_number", invoice.InvoiceNumber))

	rendered, err := s.render(NewInvoiceDocument(invoice, s.seller()))
	if err != nil {
		log.Error("failed to render invoice for archival", zap.Error(err))
		return
	}

	key := ObjectKey(InvoicePDFPrefix, fmt.Sprintf("%d", invoice.IssuedAt.Year()), invoice.InvoiceNumber+".pdf")
	if err := s.store.PutObject(ctx, key, "application/pdf", rendered.Content); err != nil {
		log.Error("failed to archive invoice pdf", zap.Error(err))
		return
	}

	if err := s.db.WithContext(ctx).Model(invoice).Update("pdf_key", key).Error; err != nil {
		log.Error("failed to store invoice pdf key", zap.Error(err))
		return
	}
	log.Info("archived invoice pdf", zap.String("key", key))
}
