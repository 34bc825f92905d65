package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is a saved product variant. (wishlist, product, variant) is unique.
type WishlistItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WishlistID uuid.UUID `gorm:"column:wishlist_id;type:uuid;not null;uniqueIndex:wishlist_items_product_variant_key" json:"wishlistId"`
	ProductID  string    `gorm:"column:product_id;not null;uniqueIndex:wishlist_items_product_variant_key" json:"productId"`
	VariantID  string    `gorm:"column:variant_id;not null;uniqueIndex:wishlist_items_product_variant_key" json:"variantId"`
	Handle     string    `gorm:"column:handle;not null" json:"handle"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (WishlistItem) TableName() string { return "wishlist_items" }
