package wishlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/repository"
	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
	"github.com/angelmondragon/storefront-wishlist/pkg/db"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
)

// ActivityLogger records best-effort activity events.
type ActivityLogger interface {
	LogActivity(ctx context.Context, shop, subjectID string, eventType models.EventType, payload map[string]any)
}

// TokenVerifier checks guest tokens handed to Migrate.
type TokenVerifier interface {
	Verify(token string, now time.Time) (*auth.SessionClaims, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo     repository.Repository
	Activity ActivityLogger
	Tokens   TokenVerifier
	Logger   *logger.Logger
	Metrics  *metrics.WishlistMetrics
	Clock    func() time.Time
}

// Service exposes the wishlist operations available to storefront callers.
type Service interface {
	GetWishlist(ctx context.Context, shop string, caller identity.Identity) (WishlistDTO, error)
	AddItem(ctx context.Context, shop string, caller identity.Identity, input AddItemInput) (ItemDTO, error)
	RemoveItem(ctx context.Context, shop string, caller identity.Identity, itemID uuid.UUID) error
	Migrate(ctx context.Context, shop string, caller identity.Identity, guestToken string) (MigrateResult, error)
}

type service struct {
	repo     repository.Repository
	activity ActivityLogger
	tokens   TokenVerifier
	logg     *logger.Logger
	metrics  *metrics.WishlistMetrics
	now      func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repository is required")
	}
	if params.Activity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity logger is required")
	}
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token verifier is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		activity: params.Activity,
		tokens:   params.Tokens,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      clock,
	}, nil
}

// GetWishlist returns the caller's wishlist, creating an empty one on first use.
func (s *service) GetWishlist(ctx context.Context, shop string, caller identity.Identity) (WishlistDTO, error) {
	wishlist, err := s.ownWishlist(ctx, s.repo, shop, caller)
	if err != nil {
		return WishlistDTO{}, err
	}
	items, err := s.repo.ListItems(ctx, wishlist.ID)
	if err != nil {
		return WishlistDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist items")
	}
	return toWishlistDTO(wishlist, items), nil
}

// AddItem saves a product variant. A variant already present yields a
// conflict carrying the existing item.
func (s *service) AddItem(ctx context.Context, shop string, caller identity.Identity, input AddItemInput) (ItemDTO, error) {
	input = AddItemInput{
		ProductID: strings.TrimSpace(input.ProductID),
		VariantID: strings.TrimSpace(input.VariantID),
		Handle:    strings.TrimSpace(input.Handle),
	}
	if missing := missingFields(input); len(missing) > 0 {
		return ItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "productId, variantId and handle are required").
			WithDetails(map[string]any{"missing": missing})
	}

	wishlist, err := s.ownWishlist(ctx, s.repo, shop, caller)
	if err != nil {
		return ItemDTO{}, err
	}

	existing, err := s.repo.FindItem(ctx, wishlist.ID, input.ProductID, input.VariantID)
	switch {
	case err == nil:
		return ItemDTO{}, duplicateItem(*existing)
	case !errors.Is(err, repository.ErrNotFound):
		return ItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wishlist item")
	}

	item := &models.WishlistItem{
		WishlistID: wishlist.ID,
		ProductID:  input.ProductID,
		VariantID:  input.VariantID,
		Handle:     input.Handle,
	}
	inserted, err := s.repo.InsertItem(ctx, item)
	if err != nil && !db.IsUniqueViolation(err, "") {
		return ItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert wishlist item")
	}
	if !inserted {
		// Lost the race to a concurrent add; the storage constraint decided.
		existing, findErr := s.repo.FindItem(ctx, wishlist.ID, input.ProductID, input.VariantID)
		if findErr != nil {
			return ItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "reload conflicting wishlist item")
		}
		return ItemDTO{}, duplicateItem(*existing)
	}

	s.activity.LogActivity(ctx, shop, caller.SubjectString(), models.EventTypeAdd, map[string]any{
		"itemId":    item.ID.String(),
		"productId": item.ProductID,
		"variantId": item.VariantID,
		"handle":    item.Handle,
	})
	return toItemDTO(*item), nil
}

// RemoveItem deletes an item owned by the caller.
func (s *service) RemoveItem(ctx context.Context, shop string, caller identity.Identity, itemID uuid.UUID) error {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wishlist item")
	}
	wishlist, err := s.repo.FindWishlistByID(ctx, item.WishlistID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wishlist")
	}

	if err := s.authorizeOwner(ctx, shop, caller, wishlist); err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete wishlist item")
	}

	s.activity.LogActivity(ctx, shop, caller.SubjectString(), models.EventTypeRemove, map[string]any{
		"itemId":    item.ID.String(),
		"productId": item.ProductID,
		"variantId": item.VariantID,
	})
	return nil
}

func (s *service) authorizeOwner(ctx context.Context, shop string, caller identity.Identity, wishlist *models.Wishlist) error {
	forbidden := pkgerrors.New(pkgerrors.CodeForbidden, "wishlist belongs to another owner")

	shopRow, err := s.repo.FindShopByDomain(ctx, shop)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return forbidden
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
	}
	if wishlist.ShopID != shopRow.ID {
		return forbidden
	}

	if wishlist.IsGuest() {
		if !caller.IsGuest() || caller.IsAnonymous() || caller.Key() != wishlist.ShareUUID {
			return forbidden
		}
		return nil
	}

	if !caller.IsRegistered() {
		return forbidden
	}
	customer, err := s.repo.FindCustomer(ctx, shopRow.ID, caller.ExternalID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return forbidden
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if customer.ID != *wishlist.CustomerID {
		return forbidden
	}
	return nil
}

// ownWishlist resolves or creates the wishlist that belongs to caller.
func (s *service) ownWishlist(ctx context.Context, repo repository.Repository, shop string, caller identity.Identity) (*models.Wishlist, error) {
	shopRow, err := repo.FindShopByDomain(ctx, shop)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
	}

	if caller.IsRegistered() {
		customer, err := repo.FindCustomer(ctx, shopRow.ID, caller.ExternalID())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
		}
		wishlist, err := repo.GetOrCreateCustomerWishlist(ctx, shopRow.ID, customer.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get or create customer wishlist")
		}
		return wishlist, nil
	}

	if caller.IsAnonymous() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest key is required")
	}
	wishlist, err := repo.GetOrCreateGuestWishlist(ctx, shopRow.ID, caller.Key())
	if err != nil {
		if errors.Is(err, repository.ErrShareUUIDTaken) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "guest key is not usable for this shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get or create guest wishlist")
	}
	return wishlist, nil
}

func missingFields(input AddItemInput) []string {
	missing := []string{}
	if input.ProductID == "" {
		missing = append(missing, "productId")
	}
	if input.VariantID == "" {
		missing = append(missing, "variantId")
	}
	if input.Handle == "" {
		missing = append(missing, "handle")
	}
	return missing
}

func duplicateItem(existing models.WishlistItem) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "item already in wishlist").
		WithDetails(map[string]any{"item": toItemDTO(existing)})
}
