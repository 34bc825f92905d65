package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/repository"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
)

// guestToken issues the guest session token a storefront holds for key.
func (f *fixture) guestToken(t *testing.T, shop, key string) string {
	t.Helper()
	issued, err := f.tokens.Issue(shop, identity.Guest(key).Subject(), f.now)
	require.NoError(t, err)
	return issued.Token
}

func TestMigrateRequiresRegisteredCaller(t *testing.T) {
	f := newFixture(t, repository.NewMemory())
	_, err := f.svc.Migrate(context.Background(), shopA, identity.Guest("g1"), f.guestToken(t, shopA, "g1"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "must be registered to migrate")
}

func TestMigrateRejectsMissingOrForgedGuestToken(t *testing.T) {
	f := newFixture(t, repository.NewMemory())
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "guest_", "aaa.bbb.ccc"} {
		_, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), raw)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "token %q", raw)
	}
}

func TestMigrateRejectsBareGuestKeys(t *testing.T) {
	repo := repository.NewMemory()
	f := newFixture(t, repo)
	shop := f.seedShop(t, shopA)
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	f.add(t, shopA, identity.Guest("g1"), "A", "1")
	shared, err := f.svc.GetWishlist(ctx, shopA, identity.Guest("g1"))
	require.NoError(t, err)

	for _, raw := range []string{"g1", "guest_g1", shared.ShareUUID} {
		_, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), raw)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "guestToken %q", raw)
	}

	guest, err := repo.FindGuestWishlist(ctx, shop.ID, "g1")
	require.NoError(t, err)
	items, err := repo.ListItems(ctx, guest.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, f.activity.ofType(models.EventTypeMigrate))
}

func TestMigrateUnknownCustomerIsNotFound(t *testing.T) {
	f := newFixture(t, repository.NewMemory())
	f.seedShop(t, shopA)
	_, err := f.svc.Migrate(context.Background(), shopA, identity.Registered("c404"), f.guestToken(t, shopA, "g1"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMigrateNothingToMigrateIsSilentSuccess(t *testing.T) {
	repo := repository.NewMemory()
	f := newFixture(t, repo)
	shop := f.seedShop(t, shopA)
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	res, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "missing"))
	require.NoError(t, err)
	assert.False(t, res.Migrated)
	assert.Zero(t, res.MigratedCount)

	// An empty guest wishlist is left alone.
	_, err = f.svc.GetWishlist(ctx, shopA, identity.Guest("g-empty"))
	require.NoError(t, err)
	res, err = f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "g-empty"))
	require.NoError(t, err)
	assert.Zero(t, res.MigratedCount)
	_, err = repo.FindGuestWishlist(ctx, shop.ID, "g-empty")
	assert.NoError(t, err)

	assert.Empty(t, f.activity.ofType(models.EventTypeMigrate))
}

func TestMigrateDeduplicates(t *testing.T) {
	repo := repository.NewMemory()
	f := newFixture(t, repo)
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	guest := identity.Guest("g1")
	f.add(t, shopA, guest, "A", "1")
	f.add(t, shopA, guest, "B", "1")
	f.add(t, shopA, identity.Registered("c1"), "A", "1")

	res, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "g1"))
	require.NoError(t, err)
	assert.True(t, res.Migrated)
	assert.Equal(t, 1, res.MigratedCount)

	got, err := f.svc.GetWishlist(ctx, shopA, identity.Registered("c1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A/1", "B/1"}, variants(got.Items))

	events := f.activity.ofType(models.EventTypeMigrate)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].payload["migratedCount"])
	assert.Equal(t, "g1", events[0].payload["guestKey"])
	assert.Equal(t, "c1", events[0].subject)
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := repository.NewMemory()
	f := newFixture(t, repo)
	shop := f.seedShop(t, shopA)
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	f.add(t, shopA, identity.Guest("g1"), "A", "1")

	first, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "g1"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.MigratedCount)

	_, err = repo.FindGuestWishlist(ctx, shop.ID, "g1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	second, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "g1"))
	require.NoError(t, err)
	assert.False(t, second.Migrated)
	assert.Zero(t, second.MigratedCount)
}

func TestMigrateAcceptsSignedGuestToken(t *testing.T) {
	f := newFixture(t, repository.NewMemory())
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()
	f.add(t, shopA, identity.Guest("g1"), "A", "1")

	issued, err := f.tokens.Issue(shopA, identity.Guest("g1").Subject(), f.now)
	require.NoError(t, err)

	res, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MigratedCount)
	assert.Equal(t, "g1", res.GuestKey)
}

func TestMigrateRejectsGuestTokenFromAnotherShopOrCustomerToken(t *testing.T) {
	f := newFixture(t, repository.NewMemory())
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	foreign, err := f.tokens.Issue(shopB, identity.Guest("g1").Subject(), f.now)
	require.NoError(t, err)
	_, err = f.svc.Migrate(ctx, shopA, identity.Registered("c1"), foreign.Token)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	customerToken, err := f.tokens.Issue(shopA, identity.Registered("c9").Subject(), f.now)
	require.NoError(t, err)
	_, err = f.svc.Migrate(ctx, shopA, identity.Registered("c1"), customerToken.Token)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMigrateGuestKeyIsShopScoped(t *testing.T) {
	repo := repository.NewMemory()
	f := newFixture(t, repo)
	f.seedShop(t, shopB)
	f.seedCustomer(t, shopA, "c1")
	ctx := context.Background()

	f.add(t, shopB, identity.Guest("g1"), "A", "1")

	res, err := f.svc.Migrate(ctx, shopA, identity.Registered("c1"), f.guestToken(t, shopA, "g1"))
	require.NoError(t, err)
	assert.False(t, res.Migrated)

	got, err := f.svc.GetWishlist(ctx, shopB, identity.Guest("g1"))
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}
