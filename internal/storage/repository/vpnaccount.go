package repository

import (
	"context"
	"fmt"
)

// UpsertVpnAccount создаёт запись VPN-аккаунта при активации подписки.
// Повторная активация того же пользователя снимает флаг блокировки.
func (s *Storage) UpsertVpnAccount(ctx context.Context, userUID string, devicesLimit int) error {
	const op = "storage.UpsertVpnAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO vpn_accounts (user_uid, devices_limit, blocked)
			  VALUES ($1, $2, false)
			  ON CONFLICT (user_uid) DO UPDATE SET devices_limit = $2, blocked = false`
	_, err := s.DB.ExecContext(ctx, query, userUID, devicesLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveVpnAccount удаляет запись VPN-аккаунта пользователя.
// Отсутствие записи не ошибка: отзыв должен быть идемпотентным.
func (s *Storage) RemoveVpnAccount(ctx context.Context, userUID string) error {
	const op = "storage.RemoveVpnAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM vpn_accounts WHERE user_uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetVpnAccountBlocked выставляет флаг блокировки аккаунта.
// Если записи уже нет, блокировать нечего, это не ошибка.
func (s *Storage) SetVpnAccountBlocked(ctx context.Context, userUID string, blocked bool) error {
	const op = "storage.SetVpnAccountBlocked"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE vpn_accounts SET blocked = $2 WHERE user_uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID, blocked)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
