// Package sweeper реализует периодическую проверку подписок:
// находит истёкшие, отзывает доступ и помечает их expired.
package sweeper

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/metrics"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// SubscriptionService описывает операции леджера подписок, нужные свипу.
type SubscriptionService interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error)
	MarkExpired(ctx context.Context, userUID string) error
}

// AccessCoordinator описывает отзыв доступа и сверку незавершённых отзывов.
type AccessCoordinator interface {
	Revoke(ctx context.Context, userUID string)
	Reconcile(ctx context.Context, limit int)
}

// Publisher публикует уведомления для процесса бота.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Sweeper периодически деактивирует истёкшие подписки.
type Sweeper struct {
	subs      SubscriptionService
	access    AccessCoordinator
	publisher Publisher
	interval  time.Duration
	batchSize int
	running   atomic.Bool
	log       *slog.Logger
}

// New создает новый Sweeper.
func New(subs SubscriptionService, access AccessCoordinator, publisher Publisher,
	interval time.Duration, batchSize int, log *slog.Logger) *Sweeper {
	return &Sweeper{
		subs:      subs,
		access:    access,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run выполняет первый проход сразу, чтобы подхватить подписки,
// истёкшие пока процесс не работал, затем запускает тикер.
// Блокируется до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один проход свипа. Проходы не накладываются:
// если предыдущий ещё идёт, текущий пропускается.
func (s *Sweeper) Tick(ctx context.Context) {
	const op = "sweeper.Tick"
	log := s.log.With(slog.String("op", op))

	if !s.running.CompareAndSwap(false, true) {
		log.Warn("previous sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	expired, err := s.subs.ListExpired(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		log.Error("failed to list expired subscriptions", sl.Err(err))
		return
	}

	for _, sub := range expired {
		s.access.Revoke(ctx, sub.UserUID)

		if err := s.subs.MarkExpired(ctx, sub.UserUID); err != nil {
			log.Error("failed to mark subscription expired", sl.UserUID(sub.UserUID), sl.Err(err))
			continue
		}
		metrics.SubscriptionsExpiredTotal.Inc()

		notification := models.ExpiredNotification{
			UserUID: sub.UserUID,
			Plan:    string(sub.Plan),
			EndDate: sub.EndDate,
		}
		if err := s.publisher.Publish("notifications", "expired", notification); err != nil {
			log.Error("failed to publish expiry notification", sl.UserUID(sub.UserUID), sl.Err(err))
		}

		log.Warn("subscription deactivated: expired",
			sl.UserUID(sub.UserUID),
			slog.Time("end_date", sub.EndDate))
	}

	s.access.Reconcile(ctx, s.batchSize)
}
