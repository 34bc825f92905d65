package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-wishlist/api/responses"
	"github.com/angelmondragon/storefront-wishlist/internal/sessions"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
)

// SessionValidator verifies a bearer token for the shop it was presented to.
type SessionValidator interface {
	ValidateSession(token, shop string) *sessions.Session
}

// Session decodes an optional bearer token into the request context. A token
// that is present but invalid, expired or bound to another shop is rejected.
func Session(validator SessionValidator, m *metrics.WishlistMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			shop := ShopFromContext(ctx)
			if shop == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "shop context missing"))
				return
			}

			session := validator.ValidateSession(token, shop)
			if session == nil {
				m.IncAuthFailure("invalid_token")
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired session"))
				return
			}

			ctx = WithSession(ctx, session)
			if logg != nil {
				ctx = logg.WithSubject(ctx, string(session.Identity.Kind()), session.Identity.SubjectString())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that did not carry a bearer token.
func RequireSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
