package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/repository"
	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
	"github.com/angelmondragon/storefront-wishlist/pkg/db"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
)

// Migrate folds the guest wishlist referenced by guestToken into the caller's
// customer wishlist and deletes it. Lookup, folding and deletion share one
// transaction. A missing or empty guest wishlist is a successful no-op.
func (s *service) Migrate(ctx context.Context, shop string, caller identity.Identity, guestToken string) (MigrateResult, error) {
	if !caller.IsRegistered() {
		return MigrateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "must be registered to migrate")
	}

	guestKey, err := s.guestKeyFrom(shop, guestToken)
	if err != nil {
		return MigrateResult{}, err
	}

	result := MigrateResult{GuestKey: guestKey}
	var customerID string
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		shopRow, err := tx.FindShopByDomain(ctx, shop)
		if err != nil {
			return notFoundOr(err, "shop not found", "lookup shop")
		}
		customer, err := tx.FindCustomer(ctx, shopRow.ID, caller.ExternalID())
		if err != nil {
			return notFoundOr(err, "customer not found", "lookup customer")
		}
		customerID = customer.ID.String()

		guest, err := tx.FindGuestWishlist(ctx, shopRow.ID, guestKey)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup guest wishlist")
		}
		guestItems, err := tx.ListItems(ctx, guest.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guest items")
		}
		if len(guestItems) == 0 {
			return nil
		}

		target, err := tx.GetOrCreateCustomerWishlist(ctx, shopRow.ID, customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get or create customer wishlist")
		}
		targetItems, err := tx.ListItems(ctx, target.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer items")
		}

		migrated, err := foldItems(ctx, tx, target, targetItems, guestItems)
		if err != nil {
			return err
		}

		if _, err := tx.DeleteItems(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest items")
		}
		if err := tx.DeleteWishlist(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest wishlist")
		}

		result.Migrated = true
		result.MigratedCount = migrated
		return nil
	})
	if err != nil {
		s.metrics.ObserveMigration(metrics.MigrationFailure, 0)
		return MigrateResult{}, asTyped(err)
	}

	if !result.Migrated {
		s.metrics.ObserveMigration(metrics.MigrationNoop, 0)
		return result, nil
	}

	s.metrics.ObserveMigration(metrics.MigrationMerged, result.MigratedCount)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"customer_id":    customerID,
		"migrated_count": result.MigratedCount,
	})
	s.logg.Info(logCtx, "guest wishlist migrated")

	s.activity.LogActivity(ctx, shop, caller.SubjectString(), models.EventTypeMigrate, map[string]any{
		"migratedCount": result.MigratedCount,
		"guestKey":      guestKey,
	})
	return result, nil
}

// foldItems copies guest items that the target does not already hold and
// returns how many rows were actually inserted.
func foldItems(ctx context.Context, tx repository.Repository, target *models.Wishlist, targetItems, guestItems []models.WishlistItem) (int, error) {
	type variantKey struct{ product, variant string }
	present := make(map[variantKey]struct{}, len(targetItems))
	for _, item := range targetItems {
		present[variantKey{item.ProductID, item.VariantID}] = struct{}{}
	}

	migrated := 0
	for _, item := range guestItems {
		key := variantKey{item.ProductID, item.VariantID}
		if _, ok := present[key]; ok {
			continue
		}
		inserted, err := tx.InsertItem(ctx, &models.WishlistItem{
			WishlistID: target.ID,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Handle:     item.Handle,
		})
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copy guest item")
		}
		present[key] = struct{}{}
		if inserted {
			migrated++
		}
	}
	return migrated, nil
}

// guestKeyFrom accepts only a signed guest session token for the same shop.
// Bare keys are rejected: a guest key doubles as the public share uuid.
func (s *service) guestKeyFrom(shop, guestToken string) (string, error) {
	raw := strings.TrimSpace(guestToken)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guestToken is required")
	}
	if !auth.LooksLikeToken(raw) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guestToken must be a guest session token")
	}

	claims, err := s.tokens.Verify(raw, s.now())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "guestToken is not a valid guest session")
	}
	if !strings.EqualFold(claims.Shop, shop) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guestToken was issued for another shop")
	}
	guest := identity.FromClaims(claims)
	if !guest.IsGuest() || guest.IsAnonymous() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guestToken does not carry a guest key")
	}
	return guest.Key(), nil
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}

func asTyped(err error) error {
	if db.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "wishlist changed concurrently, retry the migration")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "migrate guest wishlist")
}
