package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-wishlist/api/controllers"
	"github.com/angelmondragon/storefront-wishlist/api/middleware"
	"github.com/angelmondragon/storefront-wishlist/internal/wishlist"
	"github.com/angelmondragon/storefront-wishlist/pkg/config"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
	"github.com/angelmondragon/storefront-wishlist/pkg/redis"
)

type sessionManager interface {
	controllers.SessionService
	middleware.SessionValidator
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	wishlistMetrics *metrics.WishlistMetrics,
	metricsHandler http.Handler,
	sessionManager sessionManager,
	wishlistService wishlist.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must not reach the limiter or readiness check as a
	// non-nil interface.
	var redisP controllers.Pinger
	rateLimit := middleware.RateLimit(middleware.RateLimitPolicy{}, nil, wishlistMetrics, logg)
	if redisClient != nil {
		redisP = redisClient
		policy := middleware.NewRateLimitPolicy("proxy", cfg.Proxy.RateLimitWindow, cfg.Proxy.RateLimitMax)
		rateLimit = middleware.RateLimit(policy, redisClient, wishlistMetrics, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route(cfg.Proxy.MountPath, func(r chi.Router) {
		r.Use(middleware.ProxySignature(cfg.Proxy.SharedSecret, wishlistMetrics, logg))
		r.Use(rateLimit)

		r.Get("/ping", controllers.ProxyPing())
		r.Post("/session/refresh", controllers.SessionRefresh(sessionManager, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(sessionManager, wishlistMetrics, logg))
			r.Get("/wishlist", controllers.WishlistGet(sessionManager, wishlistService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession(logg))
				r.Post("/wishlist/items", controllers.WishlistAddItem(sessionManager, wishlistService, logg))
				r.Delete("/wishlist/items/{itemId}", controllers.WishlistRemoveItem(sessionManager, wishlistService, logg))
				r.Post("/wishlist/migrate", controllers.WishlistMigrate(sessionManager, wishlistService, logg))
			})
		})
	})

	return r
}
