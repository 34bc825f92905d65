package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/sessions"
)

type contextKey string

const (
	ctxShop    contextKey = "shop"
	ctxSession contextKey = "session"
)

// ShopFromContext returns the verified shop domain, or "" outside the proxy.
func ShopFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxShop).(string); ok {
		return v
	}
	return ""
}

// WithShop injects the verified shop domain into the context.
func WithShop(ctx context.Context, shop string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShop, shop)
}

// SessionFromContext returns the validated bearer session, if any.
func SessionFromContext(ctx context.Context) *sessions.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*sessions.Session); ok {
		return v
	}
	return nil
}

// WithSession injects a validated session for downstream handlers.
func WithSession(ctx context.Context, session *sessions.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, session)
}

// IdentityFromContext returns the caller identity carried by the session.
// ok is false when the request had no bearer token.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	session := SessionFromContext(ctx)
	if session == nil {
		return identity.Identity{}, false
	}
	return session.Identity, true
}
