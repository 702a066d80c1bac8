package services

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Well-known setting keys
const (
	SettingShippingStandardCost  = "shipping.standard_cost"
	SettingShippingFreeThreshold = "shipping.free_threshold"
	SettingContactCompanyName    = "contact.company_name"
	SettingContactEmail          = "contact.email"
	SettingContactPhone          = "contact.phone"
	SettingContactAddress        = "contact.address"
	SettingContactIBAN           = "contact.iban"
	FeatureSettingPrefix         = "feature."
)

// DefaultShippingCost applies when no shipping cost is configured
var DefaultShippingCost = models.NewMoney("5.00")

var settingKeyPattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// ShippingSettings is the typed view of the shipping.* keys
type ShippingSettings struct {
	StandardCost models.Money `json:"standard_cost"`
	// FreeShippingThreshold of zero disables free shipping
	FreeShippingThreshold models.Money `json:"free_shipping_threshold"`
}

// ContactSettings is the typed view of the contact.* keys, printed on invoices
type ContactSettings struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	IBAN        string `json:"iban"`
}

// ShippingQuoter prices shipping for a cart subtotal
type ShippingQuoter interface {
	QuoteShipping(subtotal models.Money) models.Money
}

// ContactSource provides the seller block for invoices
type ContactSource interface {
	Contact() ContactSettings
}

// Notifier fans settings changes out to other instances
type Notifier interface {
	Publish(ctx context.Context, key string) error
	Listen(ctx context.Context, onChange func(key string)) error
}

// SettingsService keeps an in-memory snapshot of the settings table and
// notifies subscribers after every change.
type SettingsService struct {
	db       *gorm.DB
	notifier Notifier

	mu          sync.RWMutex
	values      map[string]string
	subscribers map[int]func(map[string]string)
	nextSubID   int
}

var settingsServiceInstance *SettingsService

// NewSettingsService creates a settings service with an empty snapshot.
// notifier may be nil; changes then stay local to this instance.
func NewSettingsService(db *gorm.DB, notifier Notifier) *SettingsService {
	return &SettingsService{
		db:          db,
		notifier:    notifier,
		values:      make(map[string]string),
		subscribers: make(map[int]func(map[string]string)),
	}
}

// InitSettingsService creates the global settings service and loads the snapshot
func InitSettingsService(ctx context.Context, db *gorm.DB, notifier Notifier) (*SettingsService, error) {
	service := NewSettingsService(db, notifier)
	if err := service.Refresh(ctx); err != nil {
		return nil, err
	}
	settingsServiceInstance = service
	return service, nil
}

// GetSettingsService returns the global settings service
func GetSettingsService() *SettingsService {
	return settingsServiceInstance
}

// SetSettingsService sets the global settings service (primarily for testing)
func SetSettingsService(service *SettingsService) {
	settingsServiceInstance = service
}

// Get returns the value of key from the snapshot
func (s *SettingsService) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// All returns a copy of the snapshot
func (s *SettingsService) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Set validates and upserts a setting, then notifies subscribers and peers
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	if err := ValidateSetting(key, value); err != nil {
		return err
	}

	setting := models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("save setting %q: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = value
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.changed(ctx, key, snapshot)
	return nil
}

// Delete removes a setting
func (s *SettingsService) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).Delete(&models.Setting{})
	if result.Error != nil {
		return fmt.Errorf("delete setting %q: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	s.mu.Lock()
	delete(s.values, key)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.changed(ctx, key, snapshot)
	return nil
}

// Refresh reloads the snapshot from the database and notifies subscribers
func (s *SettingsService) Refresh(ctx context.Context) error {
	var settings []models.Setting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}

	s.mu.Lock()
	s.values = values
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.notifySubscribers(snapshot)
	return nil
}

// Subscribe registers fn to receive the new snapshot after every change.
// The returned function removes the subscription.
func (s *SettingsService) Subscribe(fn func(map[string]string)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Watch refreshes the snapshot whenever another instance reports a change.
// It blocks until ctx is cancelled.
func (s *SettingsService) Watch(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Listen(ctx, func(key string) {
		if err := s.Refresh(ctx); err != nil {
			logger.FromCtx(ctx).Error("failed to refresh settings after remote change",
				zap.String("key", key), zap.Error(err))
		}
	})
}

// Shipping returns the typed shipping settings
func (s *SettingsService) Shipping() ShippingSettings {
	shipping := ShippingSettings{StandardCost: DefaultShippingCost}
	if value, ok := s.Get(SettingShippingStandardCost); ok {
		if d, err := decimal.NewFromString(value); err == nil {
			shipping.StandardCost = models.MoneyFromDecimal(d)
		}
	}
	if value, ok := s.Get(SettingShippingFreeThreshold); ok {
		if d, err := decimal.NewFromString(value); err == nil {
			shipping.FreeShippingThreshold = models.MoneyFromDecimal(d)
		}
	}
	return shipping
}

// QuoteShipping returns zero when the free shipping threshold is enabled and
// reached, the standard cost otherwise
func (s *SettingsService) QuoteShipping(subtotal models.Money) models.Money {
	shipping := s.Shipping()
	threshold := shipping.FreeShippingThreshold
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold.Decimal) {
		return models.Money{}
	}
	return shipping.StandardCost.Round2()
}

// Contact returns the typed contact settings
func (s *SettingsService) Contact() ContactSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ContactSettings{
		CompanyName: s.values[SettingContactCompanyName],
		Email:       s.values[SettingContactEmail],
		Phone:       s.values[SettingContactPhone],
		Address:     s.values[SettingContactAddress],
		IBAN:        s.values[SettingContactIBAN],
	}
}

// FeatureEnabled reports whether feature.<name> is set to "true"
func (s *SettingsService) FeatureEnabled(name string) bool {
	value, _ := s.Get(FeatureSettingPrefix + name)
	return value == "true"
}

// ValidateSetting checks the key format and, for typed keys, the value
func ValidateSetting(key, value string) error {
	if len(key) == 0 || len(key) > 128 || !settingKeyPattern.MatchString(key) {
		return ErrInvalidSettingKey
	}

	switch {
	case key == SettingShippingStandardCost || key == SettingShippingFreeThreshold:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%w: %s must be a non-negative amount", ErrInvalidSettingValue, key)
		}
	case strings.HasPrefix(key, FeatureSettingPrefix):
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidSettingValue, key)
		}
	}
	return nil
}

func (s *SettingsService) changed(ctx context.Context, key string, snapshot map[string]string) {
	s.notifySubscribers(snapshot)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, key); err != nil {
		logger.FromCtx(ctx).Warn("failed to publish settings change",
			zap.String("key", key), zap.Error(err))
	}
}

func (s *SettingsService) notifySubscribers(snapshot map[string]string) {
	s.mu.RLock()
	subscribers := make([]func(map[string]string), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.RUnlock()

	// each subscriber owns its map and may keep or modify it
	for _, fn := range subscribers {
		fn(maps.Clone(snapshot))
	}
}

func (s *SettingsService) copyLocked() map[string]string {
	return maps.Clone(s.values)
}
