package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/storefront-wishlist/pkg/db/types"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
)

// Memory is an in-process Repository with the same uniqueness rules as the
// SQL schema. Transactions are serialised and roll back by restoring a snapshot.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memoryData
	now  func() time.Time

	// FailEvents makes AppendEvent fail, for exercising best-effort logging.
	FailEvents error
}

type memoryData struct {
	shops     map[uuid.UUID]models.Shop
	customers map[uuid.UUID]models.Customer
	wishlists map[uuid.UUID]models.Wishlist
	items     map[uuid.UUID]models.WishlistItem
	events    []models.Event
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		data: memoryData{
			shops:     map[uuid.UUID]models.Shop{},
			customers: map[uuid.UUID]models.Customer{},
			wishlists: map[uuid.UUID]models.Wishlist{},
			items:     map[uuid.UUID]models.WishlistItem{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (d memoryData) clone() memoryData {
	out := memoryData{
		shops:     make(map[uuid.UUID]models.Shop, len(d.shops)),
		customers: make(map[uuid.UUID]models.Customer, len(d.customers)),
		wishlists: make(map[uuid.UUID]models.Wishlist, len(d.wishlists)),
		items:     make(map[uuid.UUID]models.WishlistItem, len(d.items)),
		events:    append([]models.Event(nil), d.events...),
	}
	for k, v := range d.shops {
		out.shops[k] = v
	}
	for k, v := range d.customers {
		out.customers[k] = v
	}
	for k, v := range d.wishlists {
		out.wishlists[k] = v
	}
	for k, v := range d.items {
		out.items[k] = v
	}
	return out
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(&memoryTx{m}); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// memoryTx is the Repository handed to WithinTx callbacks; nested calls run inline.
type memoryTx struct {
	*Memory
}

func (t *memoryTx) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

func (m *Memory) UpsertShop(ctx context.Context, domain string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, shop := range m.data.shops {
		if shop.Domain == domain {
			return &shop, nil
		}
	}
	now := m.now()
	shop := models.Shop{
		ID:          uuid.New(),
		Domain:      domain,
		AccessToken: models.PendingAccessToken,
		InstalledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.data.shops[shop.ID] = shop
	return &shop, nil
}

func (m *Memory) FindShopByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, shop := range m.data.shops {
		if shop.Domain == domain {
			return &shop, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpsertCustomer(ctx context.Context, shopID uuid.UUID, externalID string, email *string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	now := m.now()
	for id, customer := range m.data.customers {
		if customer.ShopID == shopID && customer.ExternalID == externalID {
			if email != nil {
				customer.Email = email
				customer.UpdatedAt = now
				m.data.customers[id] = customer
			}
			return &customer, nil
		}
	}
	customer := models.Customer{
		ID:         uuid.New(),
		ShopID:     shopID,
		ExternalID: externalID,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.data.customers[customer.ID] = customer
	return &customer, nil
}

func (m *Memory) FindCustomer(ctx context.Context, shopID uuid.UUID, externalID string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, customer := range m.data.customers {
		if customer.ShopID == shopID && customer.ExternalID == externalID {
			return &customer, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetOrCreateCustomerWishlist(ctx context.Context, shopID, customerID uuid.UUID) (*models.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.data.wishlists {
		if w.ShopID == shopID && w.CustomerID != nil && *w.CustomerID == customerID {
			return &w, nil
		}
	}
	return m.insertWishlistLocked(shopID, &customerID, uuid.NewString())
}

func (m *Memory) FindGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.findShareLocked(shareUUID); ok && w.ShopID == shopID && w.IsGuest() {
		return &w, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) GetOrCreateGuestWishlist(ctx context.Context, shopID uuid.UUID, shareUUID string) (*models.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.findShareLocked(shareUUID); ok {
		if w.ShopID != shopID || !w.IsGuest() {
			return nil, ErrShareUUIDTaken
		}
		return &w, nil
	}
	return m.insertWishlistLocked(shopID, nil, shareUUID)
}

func (m *Memory) findShareLocked(shareUUID string) (models.Wishlist, bool) {
	for _, w := range m.data.wishlists {
		if w.ShareUUID == shareUUID {
			return w, true
		}
	}
	return models.Wishlist{}, false
}

func (m *Memory) insertWishlistLocked(shopID uuid.UUID, customerID *uuid.UUID, shareUUID string) (*models.Wishlist, error) {
	now := m.now()
	w := models.Wishlist{
		ID:         uuid.New(),
		ShopID:     shopID,
		CustomerID: customerID,
		ShareUUID:  shareUUID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.data.wishlists[w.ID] = w
	return &w, nil
}

func (m *Memory) FindWishlistByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.data.wishlists[id]; ok {
		return &w, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) DeleteWishlist(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.wishlists, id)
	return nil
}

func (m *Memory) ListItems(ctx context.Context, wishlistID uuid.UUID) ([]models.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.WishlistItem{}
	for _, item := range m.data.items {
		if item.WishlistID == wishlistID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (m *Memory) FindItem(ctx context.Context, wishlistID uuid.UUID, productID, variantID string) (*models.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.findItemLocked(wishlistID, productID, variantID); ok {
		return &item, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) findItemLocked(wishlistID uuid.UUID, productID, variantID string) (models.WishlistItem, bool) {
	for _, item := range m.data.items {
		if item.WishlistID == wishlistID && item.ProductID == productID && item.VariantID == variantID {
			return item, true
		}
	}
	return models.WishlistItem{}, false
}

func (m *Memory) FindItemByID(ctx context.Context, id uuid.UUID) (*models.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.data.items[id]; ok {
		return &item, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertItem(ctx context.Context, item *models.WishlistItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.findItemLocked(item.WishlistID, item.ProductID, item.VariantID); exists {
		return false, nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, exists := m.data.items[item.ID]; exists {
		return false, nil
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = m.now()
	}
	m.data.items[item.ID] = *item
	return true, nil
}

func (m *Memory) DeleteItem(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.items, id)
	return nil
}

func (m *Memory) DeleteItems(ctx context.Context, wishlistID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, item := range m.data.items {
		if item.WishlistID == wishlistID {
			delete(m.data.items, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) AppendEvent(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEvents != nil {
		return m.FailEvents
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now()
	}
	if event.Payload == nil {
		event.Payload = dbtypes.JSONMap{}
	}
	m.data.events = append(m.data.events, *event)
	return nil
}

// Events returns a copy of the recorded events, optionally filtered by type.
func (m *Memory) Events(eventType models.EventType) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, e := range m.data.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

