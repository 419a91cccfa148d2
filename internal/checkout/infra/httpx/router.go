package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/subfusion/checkout/internal/checkout/infra/httpx/middlewares"
)

type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.AttachRequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", Healthz)

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Route("/api", func(r chi.Router) {
		r.With(limiter.Handler).Post("/order", handler.CreateOrder)

		r.Route("/payment", func(r chi.Router) {
			r.With(limiter.Handler).Post("/create", handler.CreatePayment)
			r.Get("/success", handler.PaymentSuccess)
			r.Post("/success", handler.PaymentSuccess)
			r.Get("/fail", handler.PaymentFail)
			r.Post("/fail", handler.PaymentFail)
			r.Get("/cancel", handler.PaymentCancel)
			r.Post("/cancel", handler.PaymentCancel)
			r.Post("/ipn", handler.PaymentIPN)
		})
	})

	return otelhttp.NewHandler(r, "checkout.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
