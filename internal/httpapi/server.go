package httpapi

import (
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nikolayk812/storefront/internal/port"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"net/http"
	"time"
)

const maxBodySize = 1 << 20

type Config struct {
	Sessions       *Registry
	API            port.ShopAPI
	Widget         port.PaymentWidget // optional, enables POST /checkout/pay
	RequestTimeout time.Duration
}

type handler struct {
	sessions *Registry
	api      port.ShopAPI
	widget   port.PaymentWidget
	logger   *zap.Logger
}

func NewRouter(cfg Config, logger *zap.Logger) (http.Handler, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("sessions is nil")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("api is nil")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	h := &handler{
		sessions: cfg.Sessions,
		api:      cfg.API,
		widget:   cfg.Widget,
		logger:   logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(maxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tokenMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(h.sessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.getCart)
				r.Get("/summary", h.getSummary)
				r.Post("/items", h.addItem)
				r.Post("/items/{id}/increment", h.incrementItem)
				r.Post("/items/{id}/decrement", h.decrementItem)
				r.Put("/items/{id}", h.updateQuantity)
				r.Delete("/items/{id}", h.removeItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.getCheckout)
				r.Post("/", h.enterCheckout)
				r.Delete("/", h.abandonCheckout)
				r.Post("/orders", h.placeOrder)
				r.Post("/payment", h.resolvePayment)
				r.Post("/retry", h.retryPayment)
				if h.widget != nil {
					r.Post("/pay", h.pay)
				}
			})
		})

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
	})

	return otelhttp.NewHandler(r, "storefront"), nil
}
