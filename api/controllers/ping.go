package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-wishlist/api/middleware"
	"github.com/angelmondragon/storefront-wishlist/api/responses"
	"github.com/angelmondragon/storefront-wishlist/pkg/types"
)

type pingResponse struct {
	types.SuccessEnvelope
	Shop   string `json:"shop"`
	Status string `json:"status"`
}

// ProxyPing confirms that a signed proxy request reached the service.
func ProxyPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{
			SuccessEnvelope: types.OK(),
			Shop:            middleware.ShopFromContext(r.Context()),
			Status:          "ok",
		})
	}
}
