package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-wishlist/pkg/db"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store implements Repository on GORM.
type Store struct {
	db   *gorm.DB
	tx   txRunner
	inTx bool
}

// NewStore binds a Store to the shared database client.
func NewStore(client *db.Client) *Store {
	return &Store{db: client.DB(), tx: client}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// WithinTx opens a transaction through the client, so Postgres runs it at
// SERIALIZABLE. Nested calls reuse the open transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(&Store{db: tx, tx: s.tx, inTx: true})
	})
}

func (s *Store) UpsertShop(ctx context.Context, domain string) (*models.Shop, error) {
	now := db.NowUTC()
	shop := models.Shop{
		ID:          uuid.New(),
		Domain:      domain,
		AccessToken: models.PendingAccessToken,
		InstalledAt: now,
	}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "domain"}}, DoNothing: true}).
		Create(&shop).Error
	if err != nil {
		return nil, err
	}
	return s.FindShopByDomain(ctx, domain)
}

func (s *Store) FindShopByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	var shop models.Shop
	if err := s.conn(ctx).Where("domain = ?", domain).Take(&shop).Error; err != nil {
		return nil, notFound(err)
	}
	return &shop, nil
}

func (s *Store) UpsertCustomer(ctx context.Context, shopID uuid.UUID, externalID string, email *string) (*models.Customer, error) {
	customer := models.Customer{
		ID:         uuid.New(),
		ShopID:     shopID,
		ExternalID: externalID,
		Email:      normalizeEmail(email),
	}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop_id"}, {Name: "external_id"}},
		DoNothing: true,
	}
	if customer.Email != nil {
		conflict = clause.OnConflict{
			Columns:   conflict.Columns,
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}
	}
	if err := s.conn(ctx).Clauses(conflict).Create(&customer).Error; err != nil {
		return nil, err
	}
	return s.FindCustomer(ctx, shopID, externalID)
}

func (s *Store) FindCustomer(ctx context.Context, shopID uuid.UUID, externalID string) (*models.Customer, error) {
	var customer models.Customer
	err := s.conn(ctx).
		Where("shop_id = ? AND external_id = ?", shopID, externalID).
		Take(&customer).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

// GetOrCreateCustomerWishlist inserts and re-reads, so concurrent callers
// converge on the row the (shop_id, customer_id) constraint kept.
func (s *Store) GetOrCreateCustomerWishlist(ctx context.Context, shopID, customerID uuid.UUID) (*models.Wishlist, error) {
	wishlist := models.Wishlist{
		ID:         uuid.New(),
		ShopID:     shopID,
		CustomerID: &customerID,
		ShareUUID:  uuid.NewString(),
	}
	err := s.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&wishlist).Error
	if err != nil {
		return nil, err
	}

	var out models.Wishlist
	err = s.conn(ctx).
		Where("shop_id = ? AND customer_id = ?", shopID, customerID).
		Take(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) FindGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error) {
	var out models.Wishlist
	err := s.conn(ctx).
		Where("shop_id = ? AND customer_id IS NULL AND share_uuid = ?", shopID, shareUUID).
		Take(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) GetOrCreateGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error) {
	wishlist := models.Wishlist{
		ID:        uuid.New(),
		ShopID:    shopID,
		ShareUUID: shareUUID,
	}
	err := s.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&wishlist).Error
	if err != nil {
		return nil, err
	}

	out, err := s.FindGuestWishlist(ctx, shopID, shareUUID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrShareUUIDTaken
	}
	return out, err
}

func (s *Store) FindWishlistByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var out models.Wishlist
	if err := s.conn(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) DeleteWishlist(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Where("id = ?", id).Delete(&models.Wishlist{}).Error
}

func (s *Store) ListItems(ctx context.Context, wishlistID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.conn(ctx).
		Where("wishlist_id = ?", wishlistID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) FindItem(ctx context.Context, wishlistID uuid.UUID, productID, variantID string) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := s.conn(ctx).
		Where("wishlist_id = ? AND product_id = ? AND variant_id = ?", wishlistID, productID, variantID).
		Take(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) FindItemByID(ctx context.Context, id uuid.UUID) (*models.WishlistItem, error) {
	var item models.WishlistItem
	if err := s.conn(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) InsertItem(ctx context.Context, item *models.WishlistItem) (bool, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	res := s.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Where("id = ?", id).Delete(&models.WishlistItem{}).Error
}

func (s *Store) DeleteItems(ctx context.Context, wishlistID uuid.UUID) (int64, error) {
	res := s.conn(ctx).Where("wishlist_id = ?", wishlistID).Delete(&models.WishlistItem{})
	return res.RowsAffected, res.Error
}

func (s *Store) AppendEvent(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return s.conn(ctx).Create(event).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
