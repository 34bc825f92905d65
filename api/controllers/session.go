package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-wishlist/api/middleware"
	"github.com/angelmondragon/storefront-wishlist/api/responses"
	"github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/types"
)

type refreshResponse struct {
	types.SuccessEnvelope
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// SessionRefresh reissues the presented bearer token with a full lifetime.
func SessionRefresh(manager SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil {
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeInternal, "session manager unavailable"))
			return
		}

		token := middleware.BearerToken(r)
		if token == "" {
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeUnauthorized, "missing credentials"))
			return
		}

		issued := manager.RefreshSession(token, middleware.ShopFromContext(ctx))
		if issued == nil {
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeUnauthorized, "invalid or expired session"))
			return
		}

		responses.WriteSuccess(w, refreshResponse{
			SuccessEnvelope: types.OK(),
			Token:           issued.Token,
			ExpiresIn:       issued.ExpiresIn,
		})
	}
}
