package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// CreateSubscription вставляет новую подписку со статусом active.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, user_uid, plan, start_date, end_date, status)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserUID, sub.Plan, sub.StartDate, sub.EndDate, sub.Status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListExpiredActive возвращает активные подписки, чья дата окончания
// уже наступила. Фильтр выполняется на стороне базы, выборка ограничена,
// чтобы свип не держал весь активный набор в памяти.
func (s *Storage) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	const op = "storage.ListExpiredActive"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan, start_date, end_date, status, created_at
			  FROM subscriptions
			  WHERE status = 'active' AND end_date <= $1
			  ORDER BY end_date
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		if err := rows.Scan(&item.ID, &item.UserUID, &item.Plan, &item.StartDate,
			&item.EndDate, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindActiveByUserUID возвращает действующую подписку пользователя или nil.
func (s *Storage) FindActiveByUserUID(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FindActiveByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan, start_date, end_date, status, created_at
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = 'active'
			  ORDER BY end_date DESC
			  LIMIT 1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.Subscription
	if err := row.Scan(&result.ID, &result.UserUID, &result.Plan, &result.StartDate,
		&result.EndDate, &result.Status, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// MarkExpired переводит активные подписки пользователя в expired
// и возвращает количество изменённых строк. Условие по статусу в WHERE
// делает переход одноразовым: повторный вызов меняет ноль строк.
func (s *Storage) MarkExpired(ctx context.Context, userUID string) (int, error) {
	const op = "storage.MarkExpired"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'expired'
			  WHERE user_uid = $1 AND status = 'active'`
	result, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
