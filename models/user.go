package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the local profile of an identity provider subject. Orders, carts
// and invoices hang off ID; Auth0ID is only used to resolve the token.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // identity provider subject ('sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string         `json:"phone"`
	Role      string         `gorm:"not null;default:'customer'" json:"role"` // "customer" or "admin"
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may manage the catalog, orders and settings
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave lowercases the email so the unique index is case insensitive and
// stores anything other than admin as customer
func (u *User) BeforeSave(*gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role != RoleAdmin {
		u.Role = RoleCustomer
	}
	return nil
}
