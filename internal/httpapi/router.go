package httpapi

import (
	"net/http"

	"shopora-be/internal/logger"
	"shopora-be/internal/metrics"
	"shopora-be/internal/middleware"
	"shopora-be/internal/payment/webhook"
	"shopora-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	JWTSecret []byte
	Metrics   *metrics.ServerMetrics
	Limiter   *middleware.RateLimiter
}

// NewRouter assembles the HTTP surface. The /api tree runs behind auth (user
// or guest identity); payment webhooks are open to the gateway, protected by
// signature verification instead.
func NewRouter(api *API, hooks *webhook.Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/payment", func(r chi.Router) {
		// No identity here; the limiter falls back to keying by client IP.
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}
		r.Get("/callback", hooks.CallbackHandler)
		r.Post("/ipn", hooks.IPNHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		// The limiter runs after Auth so buckets key on the resolved user or
		// guest identity rather than the shared client IP.
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", api.GetCart)
			r.Post("/items", api.AddCartItem)
			r.Patch("/items/{variantID}", api.UpdateCartItem)
			r.Delete("/items/{variantID}", api.RemoveCartItem)
			r.Delete("/", api.ClearCart)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Post("/checkout", api.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", api.ListOrders)
				r.Get("/{orderCode}", api.GetOrder)
				r.Post("/{orderCode}/cancel", api.CancelOrder)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Patch("/admin/orders/{orderCode}/status", api.AdvanceOrderStatus)
		})
	})

	return r
}
