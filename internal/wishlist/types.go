package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
)

// ItemDTO is the public shape of a wishlist item.
type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"createdAt"`
}

// WishlistDTO is the public shape of a wishlist with its items.
type WishlistDTO struct {
	ID        uuid.UUID `json:"id"`
	ShareUUID string    `json:"shareUUID"`
	Items     []ItemDTO `json:"items"`
}

// AddItemInput identifies the product variant to save.
type AddItemInput struct {
	ProductID string
	VariantID string
	Handle    string
}

// MigrateResult reports the outcome of folding a guest wishlist.
// Migrated is false when there was nothing to fold.
type MigrateResult struct {
	Migrated      bool
	MigratedCount int
	GuestKey      string
}

func toItemDTO(item models.WishlistItem) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Handle:    item.Handle,
		CreatedAt: item.CreatedAt,
	}
}

func toWishlistDTO(w *models.Wishlist, items []models.WishlistItem) WishlistDTO {
	out := WishlistDTO{
		ID:        w.ID,
		ShareUUID: w.ShareUUID,
		Items:     make([]ItemDTO, 0, len(items)),
	}
	for _, item := range items {
		out.Items = append(out.Items, toItemDTO(item))
	}
	return out
}
