package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a registered storefront shopper. ExternalID is the upstream
// numeric customer id kept as text.
type Customer struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShopID     uuid.UUID `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:customers_shop_external_key"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex:customers_shop_external_key"`
	Email      *string   `gorm:"column:email"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }
