package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justuche224/swift/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OrderService is everything the API needs from the order component.
type OrderService interface {
	OrderTracker
	OrderAdmin
}

type RouterConfig struct {
	ServiceName        string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SecureCookies      bool

	Carts    CartService
	Orders   OrderService
	Gifts    GiftCatalog
	Login    Authenticator
	Tokens   TokenParser
	Hub      http.Handler
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	Log      *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	cartHandler := NewCartHandler(cfg.Carts, timeout, cfg.MaxRequestBodySize)
	trackHandler := NewTrackHandler(cfg.Orders, timeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, timeout, cfg.MaxRequestBodySize)
	giftHandler := NewGiftHandler(cfg.Gifts, timeout, cfg.MaxRequestBodySize)
	authHandler := NewAuthHandler(cfg.Login, cfg.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens))

		// the websocket stream stays open, so it skips compression
		if cfg.Hub != nil {
			r.With(RequireAdmin).Get("/admin/revalidate/ws", cfg.Hub.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Post("/auth/login", authHandler.Login)

			r.Route("/cart", func(r chi.Router) {
				r.Use(CartOwner(cfg.SecureCookies))
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})
			r.With(CartOwner(cfg.SecureCookies)).Post("/checkout", cartHandler.Checkout)

			r.Get("/track/{code}", trackHandler.Track)

			r.Get("/gifts", giftHandler.ListActive)
			r.Get("/gifts/{gift_id}", giftHandler.GetActive)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordersHandler.ListOrders)
					r.Get("/export", ordersHandler.ExportOrders)
					r.Get("/{order_id}", ordersHandler.GetOrder)
					r.Delete("/{order_id}", ordersHandler.DeleteOrder)
					r.Patch("/{order_id}/status", ordersHandler.UpdateStatus)
					r.Get("/{order_id}/history", ordersHandler.StatusHistory)
				})

				r.Route("/gifts", func(r chi.Router) {
					r.Get("/", giftHandler.AdminList)
					r.Post("/", giftHandler.Create)
					r.Get("/{gift_id}", giftHandler.AdminGet)
					r.Put("/{gift_id}", giftHandler.Update)
					r.Delete("/{gift_id}", giftHandler.Delete)
					r.Patch("/{gift_id}/active", giftHandler.SetActive)
				})
			})
		})
	})

	name := cfg.ServiceName
	if name == "" {
		name = "storefront"
	}
	return otelhttp.NewHandler(r, name)
}
