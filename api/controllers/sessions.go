package controllers

import (
	"context"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/sessions"
	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
)

// SessionService is the session surface used by the storefront handlers.
type SessionService interface {
	CreateCustomerSession(ctx context.Context, shop string, customer sessions.ExternalCustomer) (sessions.CustomerSession, error)
	CreateGuestSession(ctx context.Context, shop, guestKey string) (sessions.GuestSession, error)
	RefreshSession(token, shop string) *auth.IssuedToken
	Reissue(session *sessions.Session) (auth.IssuedToken, error)
	IssueFor(shop string, id identity.Identity) (auth.IssuedToken, error)
}
