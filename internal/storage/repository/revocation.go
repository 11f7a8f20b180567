package repository

import (
	"context"
	"fmt"

	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// UpsertRevocationJob регистрирует задание на отзыв доступа пользователя
// и возвращает его текущее состояние. Если задание уже есть, возвращается
// существующее, чтобы не терять отметки уже выполненных шагов.
func (s *Storage) UpsertRevocationJob(ctx context.Context, userUID string) (*models.RevocationJob, error) {
	const op = "storage.UpsertRevocationJob"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO revocation_jobs (user_uid)
			  VALUES ($1)
			  ON CONFLICT (user_uid) DO UPDATE SET updated_at = now()
			  RETURNING id, user_uid, client_removed, account_removed, account_blocked,
			      attempts, created_at, updated_at`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var job models.RevocationJob
	if err := row.Scan(&job.ID, &job.UserUID, &job.ClientRemoved, &job.AccountRemoved,
		&job.AccountBlocked, &job.Attempts, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &job, nil
}

// DeleteRevocationJob снимает задание на отзыв. Вызывается при повторной
// выдаче доступа: недоделанный отзыв не должен пережить новую подписку.
// Отсутствие задания не ошибка.
func (s *Storage) DeleteRevocationJob(ctx context.Context, userUID string) error {
	const op = "storage.DeleteRevocationJob"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM revocation_jobs WHERE user_uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateRevocationJob сохраняет отметки выполненных шагов и счётчик попыток.
func (s *Storage) UpdateRevocationJob(ctx context.Context, job *models.RevocationJob) error {
	const op = "storage.UpdateRevocationJob"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE revocation_jobs
			  SET client_removed = $2, account_removed = $3, account_blocked = $4,
			      attempts = $5, updated_at = now()
			  WHERE id = $1`
	_, err := s.DB.ExecContext(ctx, query,
		job.ID, job.ClientRemoved, job.AccountRemoved, job.AccountBlocked, job.Attempts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListIncompleteRevocations возвращает задания, у которых остались
// невыполненные шаги. Их дожимает проход сверки в свипе.
func (s *Storage) ListIncompleteRevocations(ctx context.Context, limit int) ([]*models.RevocationJob, error) {
	const op = "storage.ListIncompleteRevocations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, client_removed, account_removed, account_blocked,
			      attempts, created_at, updated_at
			  FROM revocation_jobs
			  WHERE NOT (client_removed AND account_removed AND account_blocked)
			  ORDER BY updated_at
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.RevocationJob
	for rows.Next() {
		var job models.RevocationJob
		if err := rows.Scan(&job.ID, &job.UserUID, &job.ClientRemoved, &job.AccountRemoved,
			&job.AccountBlocked, &job.Attempts, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
