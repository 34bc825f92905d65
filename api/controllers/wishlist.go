package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-wishlist/api/middleware"
	"github.com/angelmondragon/storefront-wishlist/api/responses"
	"github.com/angelmondragon/storefront-wishlist/api/validators"
	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/sessions"
	"github.com/angelmondragon/storefront-wishlist/internal/wishlist"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/types"
)

const (
	queryCustomerID    = "logged_in_customer_id"
	queryCustomerEmail = "customer_email"
)

type addItemPayload struct {
	Shop      string                `json:"shop,omitempty"`
	ProductID validators.FlexibleID `json:"productId" validate:"required,max=64"`
	VariantID validators.FlexibleID `json:"variantId" validate:"required,max=64"`
	Handle    string                `json:"handle" validate:"required,max=255"`
}

type migratePayload struct {
	Shop       string `json:"shop,omitempty"`
	GuestToken string `json:"guestToken" validate:"required"`
}

type wishlistResponse struct {
	types.SuccessEnvelope
	Wishlist wishlist.WishlistDTO `json:"wishlist"`
	Token    string               `json:"token"`
}

type itemResponse struct {
	types.SuccessEnvelope
	Item  wishlist.ItemDTO `json:"item"`
	Token string           `json:"token"`
}

type messageResponse struct {
	types.SuccessEnvelope
	Message string `json:"message"`
	Token   string `json:"token"`
}

type migrateResponse struct {
	types.SuccessEnvelope
	Message       string `json:"message"`
	Migrated      bool   `json:"migrated"`
	MigratedCount int    `json:"migratedCount"`
	Token         string `json:"token"`
}

// WishlistGet returns the caller's wishlist. Without a bearer token the caller
// is bootstrapped from the proxy's customer parameters or as a new guest.
func WishlistGet(manager SessionService, svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		shop := middleware.ShopFromContext(ctx)

		caller, token, err := resolveCaller(ctx, r, manager, shop)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.GetWishlist(ctx, shop, caller)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, wishlistResponse{
			SuccessEnvelope: types.OK(),
			Wishlist:        dto,
			Token:           token,
		})
	}
}

// WishlistAddItem saves a product variant to the caller's wishlist.
func WishlistAddItem(manager SessionService, svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		session := middleware.SessionFromContext(ctx)
		if session == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload addItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.AddItem(ctx, middleware.ShopFromContext(ctx), session.Identity, wishlist.AddItemInput{
			ProductID: payload.ProductID.String(),
			VariantID: payload.VariantID.String(),
			Handle:    validators.SanitizeString(payload.Handle, 255),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issued, err := manager.Reissue(session)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, itemResponse{
			SuccessEnvelope: types.OK(),
			Item:            item,
			Token:           issued.Token,
		})
	}
}

// WishlistRemoveItem deletes an item owned by the caller.
func WishlistRemoveItem(manager SessionService, svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		session := middleware.SessionFromContext(ctx)
		if session == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		itemID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "itemId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "wishlist item not found"))
			return
		}

		if err := svc.RemoveItem(ctx, middleware.ShopFromContext(ctx), session.Identity, itemID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issued, err := manager.Reissue(session)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, messageResponse{
			SuccessEnvelope: types.OK(),
			Message:         "Item removed from wishlist",
			Token:           issued.Token,
		})
	}
}

// WishlistMigrate folds a guest wishlist into the registered caller's wishlist
// and returns a fresh customer token.
func WishlistMigrate(manager SessionService, svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		session := middleware.SessionFromContext(ctx)
		if session == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload migratePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		shop := middleware.ShopFromContext(ctx)
		result, err := svc.Migrate(ctx, shop, session.Identity, payload.GuestToken)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issued, err := manager.IssueFor(shop, session.Identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		message := "Nothing to migrate"
		if result.Migrated {
			message = "Wishlist migrated"
		}
		responses.WriteSuccess(w, migrateResponse{
			SuccessEnvelope: types.OK(),
			Message:         message,
			Migrated:        result.Migrated,
			MigratedCount:   result.MigratedCount,
			Token:           issued.Token,
		})
	}
}

// resolveCaller returns the identity for the request and the token to hand
// back: a rolled-forward bearer, a new customer session or a new guest session.
func resolveCaller(ctx context.Context, r *http.Request, manager SessionService, shop string) (identity.Identity, string, error) {
	if session := middleware.SessionFromContext(ctx); session != nil {
		issued, err := manager.Reissue(session)
		if err != nil {
			return identity.Identity{}, "", err
		}
		return session.Identity, issued.Token, nil
	}

	query := r.URL.Query()
	if customerID := validators.SanitizeString(query.Get(queryCustomerID), 64); customerID != "" {
		created, err := manager.CreateCustomerSession(ctx, shop, sessions.ExternalCustomer{
			ID:    customerID,
			Email: validators.OptionalString(query.Get(queryCustomerEmail), 254),
		})
		if err != nil {
			return identity.Identity{}, "", err
		}
		return identity.Registered(created.Customer.ExternalID), created.Token, nil
	}

	guest, err := manager.CreateGuestSession(ctx, shop, "")
	if err != nil {
		return identity.Identity{}, "", err
	}
	return identity.Guest(guest.GuestKey), guest.Token, nil
}
