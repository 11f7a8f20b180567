package vpnservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soloviovd/vpn-subscription-service/internal/http/handlers/payment/link"
	"github.com/soloviovd/vpn-subscription-service/internal/http/handlers/payment/result"
	"github.com/soloviovd/vpn-subscription-service/internal/http/handlers/subscription/health"
	"github.com/soloviovd/vpn-subscription-service/internal/http/handlers/subscription/status"
	"github.com/soloviovd/vpn-subscription-service/internal/http/handlers/subscription/trial"
	"github.com/soloviovd/vpn-subscription-service/internal/http/middlewarectx"
	libjwt "github.com/soloviovd/vpn-subscription-service/internal/lib/jwt"
	lifecycleservice "github.com/soloviovd/vpn-subscription-service/internal/services/lifecycle"
	subscriptionservice "github.com/soloviovd/vpn-subscription-service/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, facade *lifecycleservice.Facade,
	subscriptionService *subscriptionservice.Service, jwtMaker libjwt.Maker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа для телеграм-бота, защищена сервисным JWT
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Post("/subscriptions/trial", trial.New(logger, facade).ServeHTTP)
			r.Get("/subscriptions/{userUID}", status.New(logger, subscriptionService).ServeHTTP)
			r.Post("/payments/link", link.New(logger, facade).ServeHTTP)
		})

		// ResultURL робокассы (без аутентификации, подпись проверяется внутри)
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/payments/robokassa/result", result.New(logger, facade).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", health.New(logger).ServeHTTP)
}
