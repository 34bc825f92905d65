package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingAccessToken marks shops bootstrapped from a storefront session before
// the install flow stored a real credential.
const PendingAccessToken = "pending"

// Shop is the tenant every customer, wishlist and event is scoped to.
type Shop struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Domain      string    `gorm:"column:domain;not null;uniqueIndex:shops_domain_key"`
	AccessToken string    `gorm:"column:access_token;not null"`
	InstalledAt time.Time `gorm:"column:installed_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shop) TableName() string { return "shops" }
