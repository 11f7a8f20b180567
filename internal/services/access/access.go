// Package access реализует координатор доступа: выдачу доступа при
// активации подписки и отзыв при истечении. Отзыв состоит из трёх шагов
// по независимым внешним системам, транзакции поверх них нет, поэтому
// каждый шаг отмечается в задании на отзыв и неудавшиеся шаги дожимаются
// проходом сверки.
package access

import (
	"context"
	"log/slog"

	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/metrics"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// Plane описывает плоскость контроля доступа (панель xray).
type Plane interface {
	AddClient(ctx context.Context, userUID string) error
	RemoveClient(ctx context.Context, userUID string) error
}

// AccountRepository определяет методы для работы с VPN-аккаунтами в хранилище.
type AccountRepository interface {
	UpsertVpnAccount(ctx context.Context, userUID string, devicesLimit int) error
	RemoveVpnAccount(ctx context.Context, userUID string) error
	SetVpnAccountBlocked(ctx context.Context, userUID string, blocked bool) error
}

// JobRepository определяет методы для работы с заданиями на отзыв.
type JobRepository interface {
	UpsertRevocationJob(ctx context.Context, userUID string) (*models.RevocationJob, error)
	UpdateRevocationJob(ctx context.Context, job *models.RevocationJob) error
	DeleteRevocationJob(ctx context.Context, userUID string) error
	ListIncompleteRevocations(ctx context.Context, limit int) ([]*models.RevocationJob, error)
}

// Coordinator выполняет выдачу и отзыв доступа.
type Coordinator struct {
	plane        Plane
	accounts     AccountRepository
	jobs         JobRepository
	devicesLimit int
	log          *slog.Logger
}

// New создает новый Coordinator.
func New(plane Plane, accounts AccountRepository, jobs JobRepository, devicesLimit int, log *slog.Logger) *Coordinator {
	return &Coordinator{
		plane:        plane,
		accounts:     accounts,
		jobs:         jobs,
		devicesLimit: devicesLimit,
		log:          log,
	}
}

// Grant выдаёт доступ при активации подписки: добавляет клиента на панель
// и заводит запись VPN-аккаунта.
func (c *Coordinator) Grant(ctx context.Context, userUID string) error {
	const op = "access.Grant"
	log := c.log.With(slog.String("op", op), sl.UserUID(userUID))

	if err := c.plane.AddClient(ctx, userUID); err != nil {
		log.Error("failed to add client to access plane", sl.Err(err))
		return err
	}
	if err := c.accounts.UpsertVpnAccount(ctx, userUID, c.devicesLimit); err != nil {
		log.Error("failed to create vpn account", sl.Err(err))
		return err
	}
	// Недоделанный отзыв снимается: иначе сверка дожмёт его шаги
	// и молча отзовёт только что выданный доступ.
	if err := c.jobs.DeleteRevocationJob(ctx, userUID); err != nil {
		log.Error("failed to cancel pending revocation", sl.Err(err))
		return err
	}
	return nil
}

// Revoke отзывает доступ пользователя. Каждый шаг выполняется независимо,
// ошибка одного не мешает попытке остальных и не выходит наружу:
// сбой отзыва одного пользователя не должен остановить обработку других.
func (c *Coordinator) Revoke(ctx context.Context, userUID string) {
	const op = "access.Revoke"
	log := c.log.With(slog.String("op", op), sl.UserUID(userUID))

	job, err := c.jobs.UpsertRevocationJob(ctx, userUID)
	if err != nil {
		// Без записи в базе шаги всё равно выполняются: лучше отозванный
		// доступ без отметки, чем неотозванный из-за сбоя записи.
		log.Error("failed to record revocation job", sl.Err(err))
		job = &models.RevocationJob{UserUID: userUID}
	}

	c.runLegs(ctx, job, log)
}

// Reconcile дожимает задания с невыполненными шагами.
func (c *Coordinator) Reconcile(ctx context.Context, limit int) {
	const op = "access.Reconcile"
	log := c.log.With(slog.String("op", op))

	jobs, err := c.jobs.ListIncompleteRevocations(ctx, limit)
	if err != nil {
		log.Error("failed to list incomplete revocations", sl.Err(err))
		return
	}
	if len(jobs) == 0 {
		return
	}
	log.Info("retrying incomplete revocations", slog.Int("count", len(jobs)))
	for _, job := range jobs {
		c.runLegs(ctx, job, log.With(sl.UserUID(job.UserUID)))
	}
}

func (c *Coordinator) runLegs(ctx context.Context, job *models.RevocationJob, log *slog.Logger) {
	if !job.ClientRemoved {
		if err := c.plane.RemoveClient(ctx, job.UserUID); err != nil {
			log.Error("failed to remove client from access plane", sl.Err(err))
			metrics.RevocationLegFailuresTotal.WithLabelValues("remove_client").Inc()
		} else {
			job.ClientRemoved = true
		}
	}
	if !job.AccountRemoved {
		if err := c.accounts.RemoveVpnAccount(ctx, job.UserUID); err != nil {
			log.Error("failed to remove vpn account", sl.Err(err))
			metrics.RevocationLegFailuresTotal.WithLabelValues("remove_account").Inc()
		} else {
			job.AccountRemoved = true
		}
	}
	if !job.AccountBlocked {
		if err := c.accounts.SetVpnAccountBlocked(ctx, job.UserUID, true); err != nil {
			log.Error("failed to block vpn account", sl.Err(err))
			metrics.RevocationLegFailuresTotal.WithLabelValues("block_account").Inc()
		} else {
			job.AccountBlocked = true
		}
	}

	job.Attempts++
	if job.ID != 0 {
		if err := c.jobs.UpdateRevocationJob(ctx, job); err != nil {
			log.Error("failed to update revocation job", sl.Err(err))
		}
	}

	if job.Complete() {
		log.Info("access revoked", slog.Int("attempts", job.Attempts))
	} else {
		log.Warn("revocation incomplete, will be retried", slog.Int("attempts", job.Attempts))
	}
}
