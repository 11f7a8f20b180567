// Package subscription содержит бизнес-логику для управления подписками.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// Repository определяет методы для работы с подписками в хранилище.
type Repository interface {
	// CreateSubscription добавляет новую подписку.
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	// ListExpiredActive возвращает активные подписки с истёкшей датой окончания.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error)
	// FindActiveByUserUID возвращает действующую подписку пользователя или nil.
	FindActiveByUserUID(ctx context.Context, userUID string) (*models.Subscription, error)
	// MarkExpired переводит активные подписки пользователя в expired.
	MarkExpired(ctx context.Context, userUID string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

const statusCacheTTL = 5 * time.Minute

// Service реализует бизнес-логику работы с подписками.
// Даты начала считаются в фиксированном опорном часовом поясе,
// сравнение на истечение всегда выполняется в UTC.
type Service struct {
	repo  Repository
	cache Cache
	loc   *time.Location
	log   *slog.Logger
}

// New создает новый Service.
func New(repo Repository, cache Cache, loc *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		loc:   loc,
		log:   log,
	}
}

// Create создает подписку с вычисленной датой окончания и статусом active.
// Неизвестный план — ошибка валидации, молча создавать бессрочную
// или нулевую подписку нельзя.
func (s *Service) Create(ctx context.Context, userUID string, plan models.SubscriptionPlan) (string, error) {
	const op = "subscription.Create"
	log := s.log.With(slog.String("op", op), sl.UserUID(userUID))

	start := time.Now().In(s.loc)
	end, err := models.PlanEndDate(start, plan)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", op, err, plan)
	}

	sub := models.Subscription{
		ID:        uuid.New().String(),
		UserUID:   userUID,
		Plan:      plan,
		StartDate: start,
		EndDate:   end,
		Status:    models.SubscriptionActive,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(ctx, statusCacheKey(userUID)); err != nil {
		log.Warn("failed to invalidate status cache", sl.Err(err))
	}

	log.Info("created new subscription",
		slog.String("id", sub.ID),
		slog.String("plan", string(plan)),
		slog.Time("end_date", end))

	return sub.ID, nil
}

// ActiveByUser возвращает действующую подписку пользователя,
// используя кеш или репозиторий.
func (s *Service) ActiveByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "subscription.ActiveByUser"
	log := s.log.With(slog.String("op", op), sl.UserUID(userUID))

	var cached models.Subscription
	cacheKey := statusCacheKey(userUID)
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		log.Warn("failed to read status cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	result, err := s.repo.FindActiveByUserUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result != nil {
		if err := s.cache.Set(ctx, cacheKey, result, statusCacheTTL); err != nil {
			log.Warn("failed to cache subscription status", sl.Err(err))
		}
	}
	return result, nil
}

// ListExpired возвращает активные подписки с истёкшей датой окончания.
func (s *Service) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	return s.repo.ListExpiredActive(ctx, now, limit)
}

// MarkExpired переводит подписку пользователя в expired. Отсутствие
// активной строки не ошибка: свип может гоняться с ручными операциями,
// повторный вызов ничего не меняет.
func (s *Service) MarkExpired(ctx context.Context, userUID string) error {
	const op = "subscription.MarkExpired"
	log := s.log.With(slog.String("op", op), sl.UserUID(userUID))

	n, err := s.repo.MarkExpired(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		log.Warn("no active subscription to expire")
	}

	if err := s.cache.Invalidate(ctx, statusCacheKey(userUID)); err != nil {
		log.Warn("failed to invalidate status cache", sl.Err(err))
	}
	return nil
}

func statusCacheKey(userUID string) string {
	return fmt.Sprintf("subscription:user:%s", userUID)
}
