package models

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist belongs to a customer, or to a guest when CustomerID is nil. Guest
// wishlists use the guest key as ShareUUID.
type Wishlist struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ShopID     uuid.UUID      `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:wishlists_shop_customer_key"`
	CustomerID *uuid.UUID     `gorm:"column:customer_id;type:uuid;uniqueIndex:wishlists_shop_customer_key"`
	ShareUUID  string         `gorm:"column:share_uuid;not null;uniqueIndex:wishlists_share_uuid_key"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	Items      []WishlistItem `gorm:"foreignKey:WishlistID"`
}

func (Wishlist) TableName() string { return "wishlists" }

// IsGuest reports whether no customer owns the wishlist.
func (w Wishlist) IsGuest() bool {
	return w.CustomerID == nil
}
