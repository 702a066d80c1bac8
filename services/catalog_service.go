package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogService manages products, scents, colors and the product/variant links
type CatalogService struct {
	db     *gorm.DB
	images ImageService
}

// NewCatalogService creates a catalog service. images may be nil when object
// storage is not configured.
func NewCatalogService(db *gorm.DB, images ImageService) *CatalogService {
	return &CatalogService{db: db, images: images}
}

// ProductFilter narrows ListProducts
type ProductFilter struct {
	ActiveOnly   bool
	FeaturedOnly bool
}

// ProductUpdate carries a partial product update; nil fields are left untouched
type ProductUpdate struct {
	Name                *string       `json:"name" binding:"omitempty,min=1,max=255"`
	Description         *string       `json:"description"`
	Price               *models.Money `json:"price"`
	Stock               *int          `json:"stock" binding:"omitempty,min=0"`
	Featured            *bool         `json:"featured"`
	HasColorOptions     *bool         `json:"has_color_options"`
	AllowMultipleColors *bool         `json:"allow_multiple_colors"`
	Active              *bool         `json:"active"`
	Dimensions          *string       `json:"dimensions"`
	Weight              *string       `json:"weight"`
	Materials           *string       `json:"materials"`
	BurnTime            *string       `json:"burn_time"`
	Instructions        *string       `json:"instructions"`
	Maintenance         *string       `json:"maintenance"`
}

func (u ProductUpdate) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Price != nil {
		updates["price"] = u.Price.Round2()
	}
	if u.Stock != nil {
		updates["stock"] = *u.Stock
	}
	if u.Featured != nil {
		updates["featured"] = *u.Featured
	}
	if u.HasColorOptions != nil {
		updates["has_color_options"] = *u.HasColorOptions
	}
	if u.AllowMultipleColors != nil {
		updates["allow_multiple_colors"] = *u.AllowMultipleColors
	}
	if u.Active != nil {
		updates["active"] = *u.Active
	}
	for column, value := range map[string]*string{
		"description":  u.Description,
		"dimensions":   u.Dimensions,
		"weight":       u.Weight,
		"materials":    u.Materials,
		"burn_time":    u.BurnTime,
		"instructions": u.Instructions,
		"maintenance":  u.Maintenance,
	} {
		if value != nil {
			updates[column] = *value
		}
	}
	return updates
}

// VariantUpdate carries a partial scent or color update
type VariantUpdate struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	HexValue    *string `json:"hex_value" binding:"omitempty,hexcolor"`
	Active      *bool   `json:"active"`
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ListProducts returns products with their scents and colors loaded
func (s *CatalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if filter.FeaturedOnly {
		query = query.Where("featured = ?", true)
	}

	var products []models.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if err := s.loadVariants(ctx, products, filter.ActiveOnly); err != nil {
		return nil, err
	}
	s.populateImageURLs(ctx, products)
	return products, nil
}

// GetProduct returns one product with its scents and colors. activeOnly hides
// inactive products and inactive variants.
func (s *CatalogService) GetProduct(ctx context.Context, id uint, activeOnly bool) (*models.Product, error) {
	product, err := s.findProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if activeOnly && !product.Active {
		return nil, ErrProductNotFound
	}

	products := []models.Product{*product}
	if err := s.loadVariants(ctx, products, activeOnly); err != nil {
		return nil, err
	}
	s.populateImageURLs(ctx, products)
	return &products[0], nil
}

// CreateProduct inserts a new product
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Price = product.Price.Round2()
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct applies a partial update and returns the fresh product
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, update ProductUpdate) (*models.Product, error) {
	product, err := s.findProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if columns := update.columns(); len(columns) > 0 {
		if err := s.db.WithContext(ctx).Model(product).Updates(columns).Error; err != nil {
			return nil, fmt.Errorf("update product %d: %w", id, err)
		}
	}
	return s.GetProduct(ctx, id, false)
}

// DeleteProduct hard-deletes a product together with its variant links and the
// cart rows referencing it. Orders and invoices keep their snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.findProduct(ctx, s.db, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for _, link := range []interface{}{&models.ProductScent{}, &models.ProductColor{}} {
			if !tx.Migrator().HasTable(link) {
				continue
			}
			if err := tx.Where("product_id = ?", id).Delete(link).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	if product.ImageKey != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *product.ImageKey); err != nil {
			logger.FromCtx(ctx).Warn("failed to delete product image",
				zap.Uint("product_id", id), zap.Error(err))
		}
	}
	return nil
}

// SetProductImage uploads a new product photo and replaces the previous one
func (s *CatalogService) SetProductImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.Product, error) {
	if s.images == nil {
		return nil, ErrStorageNotConfigured
	}

	product, err := s.findProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	previousKey := product.ImageKey

	key, err := s.images.UploadImage(ctx, fileHeader)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(product).Update("image_key", key).Error; err != nil {
		return nil, fmt.Errorf("store image key: %w", err)
	}

	if previousKey != nil && *previousKey != key {
		if err := s.images.DeleteImage(ctx, *previousKey); err != nil {
			logger.FromCtx(ctx).Warn("failed to delete replaced product image",
				zap.Uint("product_id", id), zap.Error(err))
		}
	}

	return s.GetProduct(ctx, id, false)
}

func (s *CatalogService) findProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return &product, nil
}

func (s *CatalogService) populateImageURLs(ctx context.Context, products []models.Product) {
	if s.images == nil {
		return
	}
	for i := range products {
		if products[i].ImageKey == nil {
			continue
		}
		url, err := s.images.GetImageURL(ctx, *products[i].ImageKey)
		if err != nil {
			logger.FromCtx(ctx).Warn("failed to generate product image url",
				zap.Uint("product_id", products[i].ID), zap.Error(err))
			continue
		}
		products[i].ImageURL = &url
	}
}

// ---------------------------------------------------------------------------
// Scents and colors
// ---------------------------------------------------------------------------

// ListScents returns all scents ordered by name
func (s *CatalogService) ListScents(ctx context.Context, activeOnly bool) ([]models.Scent, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var scents []models.Scent
	if err := query.Find(&scents).Error; err != nil {
		return nil, fmt.Errorf("list scents: %w", err)
	}
	return scents, nil
}

// CreateScent inserts a scent; names are unique
func (s *CatalogService) CreateScent(ctx context.Context, scent *models.Scent) error {
	if err := s.db.WithContext(ctx).Create(scent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create scent: %w", err)
	}
	return nil
}

// UpdateScent applies a partial update to a scent
func (s *CatalogService) UpdateScent(ctx context.Context, id uint, update VariantUpdate) (*models.Scent, error) {
	var scent models.Scent
	if err := s.first(ctx, &scent, id, ErrScentNotFound); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Active != nil {
		updates["active"] = *update.Active
	}
	if err := s.applyVariantUpdate(ctx, &scent, updates); err != nil {
		return nil, err
	}
	if err := s.first(ctx, &scent, id, ErrScentNotFound); err != nil {
		return nil, err
	}
	return &scent, nil
}

// DeleteScent removes a scent, its product links and cart rows that selected it
func (s *CatalogService) DeleteScent(ctx context.Context, id uint) error {
	var scent models.Scent
	if err := s.first(ctx, &scent, id, ErrScentNotFound); err != nil {
		return err
	}
	return s.deleteVariant(ctx, &models.ProductScent{}, "scent_id", &scent)
}

// ListColors returns all colors ordered by name
func (s *CatalogService) ListColors(ctx context.Context, activeOnly bool) ([]models.Color, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var colors []models.Color
	if err := query.Find(&colors).Error; err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	return colors, nil
}

// CreateColor inserts a color; names are unique
func (s *CatalogService) CreateColor(ctx context.Context, color *models.Color) error {
	if err := s.db.WithContext(ctx).Create(color).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create color: %w", err)
	}
	return nil
}

// UpdateColor applies a partial update to a color
func (s *CatalogService) UpdateColor(ctx context.Context, id uint, update VariantUpdate) (*models.Color, error) {
	var color models.Color
	if err := s.first(ctx, &color, id, ErrColorNotFound); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.HexValue != nil {
		updates["hex_value"] = *update.HexValue
	}
	if update.Active != nil {
		updates["active"] = *update.Active
	}
	if err := s.applyVariantUpdate(ctx, &color, updates); err != nil {
		return nil, err
	}
	if err := s.first(ctx, &color, id, ErrColorNotFound); err != nil {
		return nil, err
	}
	return &color, nil
}

// DeleteColor removes a color, its product links and cart rows that selected it
func (s *CatalogService) DeleteColor(ctx context.Context, id uint) error {
	var color models.Color
	if err := s.first(ctx, &color, id, ErrColorNotFound); err != nil {
		return err
	}
	return s.deleteVariant(ctx, &models.ProductColor{}, "color_id", &color)
}

func (s *CatalogService) first(ctx context.Context, dest interface{}, id uint, notFound error) error {
	if err := s.db.WithContext(ctx).First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return fmt.Errorf("find %d: %w", id, err)
	}
	return nil
}

func (s *CatalogService) applyVariantUpdate(ctx context.Context, model interface{}, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update variant: %w", err)
	}
	return nil
}

func (s *CatalogService) deleteVariant(ctx context.Context, link interface{}, column string, variant interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(column+" = ?", variantID(variant)).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if tx.Migrator().HasTable(link) {
			if err := tx.Where(column+" = ?", variantID(variant)).Delete(link).Error; err != nil {
				return err
			}
		}
		return tx.Delete(variant).Error
	})
}

func variantID(variant interface{}) uint {
	switch v := variant.(type) {
	case *models.Scent:
		return v.ID
	case *models.Color:
		return v.ID
	}
	return 0
}

// ---------------------------------------------------------------------------
// Product/variant links
// ---------------------------------------------------------------------------

// withJoinTable runs op against a join table. When op fails because the table
// does not exist yet, the table is migrated and op is retried exactly once.
func (s *CatalogService) withJoinTable(ctx context.Context, model interface{}, op func(db *gorm.DB) error) error {
	db := s.db.WithContext(ctx)
	err := op(db)
	if err == nil {
		return nil
	}
	if db.Migrator().HasTable(model) {
		return err
	}

	logger.FromCtx(ctx).Warn("join table missing, creating it", zap.String("model", fmt.Sprintf("%T", model)))
	if migrateErr := db.Migrator().AutoMigrate(model); migrateErr != nil {
		return fmt.Errorf("create join table: %w", migrateErr)
	}
	return op(db)
}

// AddScentToProduct links a scent to a product. Linking twice is a no-op that
// returns the existing link.
func (s *CatalogService) AddScentToProduct(ctx context.Context, productID, scentID uint) (*models.ProductScent, error) {
	if _, err := s.findProduct(ctx, s.db, productID); err != nil {
		return nil, err
	}
	var scent models.Scent
	if err := s.first(ctx, &scent, scentID, ErrScentNotFound); err != nil {
		return nil, err
	}

	var link models.ProductScent
	err := s.withJoinTable(ctx, &models.ProductScent{}, func(db *gorm.DB) error {
		candidate := models.ProductScent{ProductID: productID, ScentID: scentID}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "scent_id"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return err
		}
		return db.Where("product_id = ? AND scent_id = ?", productID, scentID).First(&link).Error
	})
	if err != nil {
		return nil, fmt.Errorf("link scent %d to product %d: %w", scentID, productID, err)
	}
	return &link, nil
}

// AddColorToProduct links a color to a product. Linking twice is a no-op that
// returns the existing link.
func (s *CatalogService) AddColorToProduct(ctx context.Context, productID, colorID uint) (*models.ProductColor, error) {
	if _, err := s.findProduct(ctx, s.db, productID); err != nil {
		return nil, err
	}
	var color models.Color
	if err := s.first(ctx, &color, colorID, ErrColorNotFound); err != nil {
		return nil, err
	}

	var link models.ProductColor
	err := s.withJoinTable(ctx, &models.ProductColor{}, func(db *gorm.DB) error {
		candidate := models.ProductColor{ProductID: productID, ColorID: colorID}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "color_id"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return err
		}
		return db.Where("product_id = ? AND color_id = ?", productID, colorID).First(&link).Error
	})
	if err != nil {
		return nil, fmt.Errorf("link color %d to product %d: %w", colorID, productID, err)
	}
	return &link, nil
}

// RemoveScentFromProduct deletes one product/scent pairing
func (s *CatalogService) RemoveScentFromProduct(ctx context.Context, productID, scentID uint) error {
	return s.withJoinTable(ctx, &models.ProductScent{}, func(db *gorm.DB) error {
		result := db.Where("product_id = ? AND scent_id = ?", productID, scentID).Delete(&models.ProductScent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductScentNotFound
		}
		return nil
	})
}

// RemoveColorFromProduct deletes one product/color pairing
func (s *CatalogService) RemoveColorFromProduct(ctx context.Context, productID, colorID uint) error {
	return s.withJoinTable(ctx, &models.ProductColor{}, func(db *gorm.DB) error {
		result := db.Where("product_id = ? AND color_id = ?", productID, colorID).Delete(&models.ProductColor{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductColorNotFound
		}
		return nil
	})
}

// RemoveAllScentsFromProduct unlinks every scent; no links is not an error
func (s *CatalogService) RemoveAllScentsFromProduct(ctx context.Context, productID uint) (int64, error) {
	var removed int64
	err := s.withJoinTable(ctx, &models.ProductScent{}, func(db *gorm.DB) error {
		result := db.Where("product_id = ?", productID).Delete(&models.ProductScent{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

// RemoveAllColorsFromProduct unlinks every color; no links is not an error
func (s *CatalogService) RemoveAllColorsFromProduct(ctx context.Context, productID uint) (int64, error) {
	var removed int64
	err := s.withJoinTable(ctx, &models.ProductColor{}, func(db *gorm.DB) error {
		result := db.Where("product_id = ?", productID).Delete(&models.ProductColor{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

// ListProductScents returns the scents linked to a product
func (s *CatalogService) ListProductScents(ctx context.Context, productID uint, activeOnly bool) ([]models.Scent, error) {
	if _, err := s.findProduct(ctx, s.db, productID); err != nil {
		return nil, err
	}
	byProduct, err := s.scentsByProduct(ctx, []uint{productID}, activeOnly)
	if err != nil {
		return nil, err
	}
	return byProduct[productID], nil
}

// ListProductColors returns the colors linked to a product
func (s *CatalogService) ListProductColors(ctx context.Context, productID uint, activeOnly bool) ([]models.Color, error) {
	if _, err := s.findProduct(ctx, s.db, productID); err != nil {
		return nil, err
	}
	byProduct, err := s.colorsByProduct(ctx, []uint{productID}, activeOnly)
	if err != nil {
		return nil, err
	}
	return byProduct[productID], nil
}

type linkedScent struct {
	models.Scent
	ProductID uint
}

type linkedColor struct {
	models.Color
	ProductID uint
}

func (s *CatalogService) scentsByProduct(ctx context.Context, productIDs []uint, activeOnly bool) (map[uint][]models.Scent, error) {
	var rows []linkedScent
	err := s.withJoinTable(ctx, &models.ProductScent{}, func(db *gorm.DB) error {
		query := db.Table("scents").
			Select("scents.*, product_scents.product_id").
			Joins("JOIN product_scents ON product_scents.scent_id = scents.id").
			Where("product_scents.product_id IN ?", productIDs)
		if activeOnly {
			query = query.Where("scents.active = ?", true)
		}
		return query.Order("scents.name ASC").Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("load product scents: %w", err)
	}

	byProduct := make(map[uint][]models.Scent, len(productIDs))
	for _, row := range rows {
		byProduct[row.ProductID] = append(byProduct[row.ProductID], row.Scent)
	}
	return byProduct, nil
}

func (s *CatalogService) colorsByProduct(ctx context.Context, productIDs []uint, activeOnly bool) (map[uint][]models.Color, error) {
	var rows []linkedColor
	err := s.withJoinTable(ctx, &models.ProductColor{}, func(db *gorm.DB) error {
		query := db.Table("colors").
			Select("colors.*, product_colors.product_id").
			Joins("JOIN product_colors ON product_colors.color_id = colors.id").
			Where("product_colors.product_id IN ?", productIDs)
		if activeOnly {
			query = query.Where("colors.active = ?", true)
		}
		return query.Order("colors.name ASC").Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("load product colors: %w", err)
	}

	byProduct := make(map[uint][]models.Color, len(productIDs))
	for _, row := range rows {
		byProduct[row.ProductID] = append(byProduct[row.ProductID], row.Color)
	}
	return byProduct, nil
}

func (s *CatalogService) loadVariants(ctx context.Context, products []models.Product, activeOnly bool) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uint, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	scents, err := s.scentsByProduct(ctx, ids, activeOnly)
	if err != nil {
		return err
	}
	colors, err := s.colorsByProduct(ctx, ids, activeOnly)
	if err != nil {
		return err
	}

	for i := range products {
		products[i].Scents = scents[products[i].ID]
		if products[i].Scents == nil {
			products[i].Scents = []models.Scent{}
		}
		products[i].Colors = colors[products[i].ID]
		if products[i].Colors == nil {
			products[i].Colors = []models.Color{}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Selection rules
// ---------------------------------------------------------------------------

// Selection is a validated variant choice for a product
type Selection struct {
	ScentID *uint
	ColorID *uint
}

// ResolveSelection validates a scent/color choice against the product's links.
// A scent is required iff the product has at least one linked active scent.
// Colors only apply when the product has color options; otherwise any colorID
// is dropped. With color options, a color is required iff one is linked.
func (s *CatalogService) ResolveSelection(ctx context.Context, product *models.Product, scentID, colorID *uint) (Selection, error) {
	var selection Selection

	scentsByProduct, err := s.scentsByProduct(ctx, []uint{product.ID}, true)
	if err != nil {
		return selection, err
	}
	scents := scentsByProduct[product.ID]
	if scentID != nil {
		if !containsScent(scents, *scentID) {
			return selection, ErrScentNotAvailable
		}
		selection.ScentID = scentID
	} else if len(scents) > 0 {
		return selection, ErrScentRequired
	}

	if !product.HasColorOptions {
		return selection, nil
	}

	colorsByProduct, err := s.colorsByProduct(ctx, []uint{product.ID}, true)
	if err != nil {
		return selection, err
	}
	colors := colorsByProduct[product.ID]
	if colorID != nil {
		if !containsColor(colors, *colorID) {
			return selection, ErrColorNotAvailable
		}
		selection.ColorID = colorID
	} else if len(colors) > 0 {
		return selection, ErrColorRequired
	}

	return selection, nil
}

func containsScent(scents []models.Scent, id uint) bool {
	for _, s := range scents {
		if s.ID == id {
			return true
		}
	}
	return false
}

func containsColor(colors []models.Color, id uint) bool {
	for _, c := range colors {
		if c.ID == id {
			return true
		}
	}
	return false
}
