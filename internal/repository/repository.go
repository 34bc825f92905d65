// Package repository is the transactional data access layer for shops,
// customers, wishlists, items and activity events.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("repository: record not found")

	// ErrShareUUIDTaken means a guest key is already used by a wishlist of
	// another shop or of a registered customer.
	ErrShareUUIDTaken = errors.New("repository: share uuid belongs to another wishlist")
)

// Repository is the storage surface used by the session and wishlist services.
// Uniqueness of customers, customer wishlists and items is enforced by the
// store itself; callers treat their own existence checks as advisory.
type Repository interface {
	// WithinTx runs fn in a single unit of work. Every call made through the
	// Repository handed to fn commits or rolls back together.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	UpsertShop(ctx context.Context, domain string) (*models.Shop, error)
	FindShopByDomain(ctx context.Context, domain string) (*models.Shop, error)

	// UpsertCustomer creates the customer or refreshes its email when email is non-nil.
	UpsertCustomer(ctx context.Context, shopID uuid.UUID, externalID string, email *string) (*models.Customer, error)
	FindCustomer(ctx context.Context, shopID uuid.UUID, externalID string) (*models.Customer, error)

	GetOrCreateCustomerWishlist(ctx context.Context, shopID, customerID uuid.UUID) (*models.Wishlist, error)
	FindGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error)
	GetOrCreateGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error)
	FindWishlistByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	DeleteWishlist(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, wishlistID uuid.UUID) ([]models.WishlistItem, error)
	FindItem(ctx context.Context, wishlistID uuid.UUID, productID, variantID string) (*models.WishlistItem, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.WishlistItem, error)
	// InsertItem ignores duplicates and reports whether a row was written.
	InsertItem(ctx context.Context, item *models.WishlistItem) (bool, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItems(ctx context.Context, wishlistID uuid.UUID) (int64, error)

	AppendEvent(ctx context.Context, event *models.Event) error
}
