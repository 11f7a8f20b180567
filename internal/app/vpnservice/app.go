// Package vpnservice собирает приложение: хранилище, кеш, брокер,
// панель xray, сервисы, HTTP-сервер и свип истёкших подписок.
package vpnservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/soloviovd/vpn-subscription-service/internal/cache"
	"github.com/soloviovd/vpn-subscription-service/internal/config"
	libjwt "github.com/soloviovd/vpn-subscription-service/internal/lib/jwt"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/rabbitmq"
	"github.com/soloviovd/vpn-subscription-service/internal/migrations"
	accessservice "github.com/soloviovd/vpn-subscription-service/internal/services/access"
	lifecycleservice "github.com/soloviovd/vpn-subscription-service/internal/services/lifecycle"
	paymentservice "github.com/soloviovd/vpn-subscription-service/internal/services/payment"
	subscriptionservice "github.com/soloviovd/vpn-subscription-service/internal/services/subscription"
	sweeperservice "github.com/soloviovd/vpn-subscription-service/internal/services/sweeper"
	"github.com/soloviovd/vpn-subscription-service/internal/storage/repository"
	"github.com/soloviovd/vpn-subscription-service/internal/xray"
)

// App объединяет ресурсы процесса.
type App struct {
	server  *http.Server
	sweeper *sweeperservice.Sweeper
	logger  *slog.Logger
	db      *repository.Storage
	amqp    *amqp.Connection
	channel *amqp.Channel
}

// New создаёт приложение и все его зависимости.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(channel)

	// Даты начала подписок считаются по московскому времени.
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return nil, fmt.Errorf("failed to load reference timezone: %w", err)
	}

	xrayClient := xray.NewClient(cfg.XrayPanel)
	jwtMaker := libjwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	subscriptionService := subscriptionservice.New(db, cacheRedis, loc, logger)
	paymentService := paymentservice.New(db, cfg.Robokassa, cfg.IsProduction(), logger)
	accessCoordinator := accessservice.New(xrayClient, db, db, cfg.DevicesLimit, logger)
	facade := lifecycleservice.New(subscriptionService, paymentService, accessCoordinator, logger)
	sweeper := sweeperservice.New(subscriptionService, accessCoordinator, publisher,
		cfg.Sweep.Interval, cfg.Sweep.BatchSize, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, facade, subscriptionService, jwtMaker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		sweeper: sweeper,
		logger:  logger,
		db:      db,
		amqp:    conn,
		channel: channel,
	}, nil
}

// Run запускает HTTP-сервер и свип, блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.channel.Close()
		_ = a.amqp.Close()
		_ = a.db.DB.Close()
		return err
	}
}
