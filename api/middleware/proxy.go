package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/angelmondragon/storefront-wishlist/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
	"github.com/angelmondragon/storefront-wishlist/pkg/security"
)

const maxProxyBodyBytes = 1 << 20

// ProxySignature authenticates app proxy requests by the HMAC of the method,
// path, shop header, query and raw body, then resolves and attaches the shop
// scope. The body is restored for handlers.
func ProxySignature(secret string, m *metrics.WishlistMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			query := r.URL.Query()
			shopHeader := r.Header.Get(security.HeaderShopDomain)
			payload := security.ProxyPayload(r.Method, r.URL.Path, shopHeader, query, body)
			if err := security.VerifyProxySignature(payload, r.Header.Get(security.HeaderProxySignature), secret); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
					m.IncAuthFailure("signature")
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}

			shop, err := security.ResolveShopDomain(shopHeader, query.Get(security.QueryShop), body)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithShop(ctx, shop)
			if logg != nil {
				ctx = logg.WithShop(ctx, shop)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
