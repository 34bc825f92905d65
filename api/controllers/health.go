package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-wishlist/api/responses"
	"github.com/angelmondragon/storefront-wishlist/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/types"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by dependencies checked for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	types.SuccessEnvelope
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wishlist-Env", cfg.App.Env)
		responses.WriteSuccess(w, healthResponse{SuccessEnvelope: types.OK(), Status: "live"})
	}
}

// HealthReady pings the database and, when configured, redis. A nil redis
// pinger is reported as disabled rather than failing readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wishlist-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		if dbP == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"))
			return
		}
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable").
				WithDetails(map[string]string{"db": "down"}))
			return
		}
		checks["db"] = "up"

		if redisP == nil {
			checks["redis"] = "disabled"
		} else if err := redisP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable").
				WithDetails(map[string]string{"db": "up", "redis": "down"}))
			return
		} else {
			checks["redis"] = "up"
		}

		responses.WriteSuccess(w, healthResponse{SuccessEnvelope: types.OK(), Status: "ready", Checks: checks})
	}
}
