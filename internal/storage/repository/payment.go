package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

var (
	// ErrDuplicateTransaction транзакция с таким InvId уже существует.
	ErrDuplicateTransaction = errors.New("transaction id already exists")
	// ErrTransactionNotFound транзакция не найдена при смене статуса.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// CreateTransaction вставляет новую платёжную транзакцию и возвращает её номер.
// Уникальность transaction_id обеспечивает первичный ключ.
func (s *Storage) CreateTransaction(ctx context.Context, tx models.PaymentTransaction) (string, error) {
	const op = "storage.CreateTransaction"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_transactions
			      (transaction_id, user_uid, plan, amount, currency, description, payment_method, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.DB.ExecContext(ctx, query,
		tx.TransactionID, tx.UserUID, tx.Plan, tx.Amount, tx.Currency,
		tx.Description, tx.PaymentMethod, tx.Status, tx.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, ErrDuplicateTransaction)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return tx.TransactionID, nil
}

// FindTransaction возвращает транзакцию по номеру или nil, если её нет.
func (s *Storage) FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	const op = "storage.FindTransaction"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT transaction_id, user_uid, plan, amount, currency, description, payment_method, status, created_at
			  FROM payment_transactions
			  WHERE transaction_id = $1`
	row := s.DB.QueryRowContext(ctx, query, transactionID)

	var result models.PaymentTransaction
	if err := row.Scan(&result.TransactionID, &result.UserUID, &result.Plan, &result.Amount,
		&result.Currency, &result.Description, &result.PaymentMethod, &result.Status, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// MarkPaid переводит транзакцию в статус paid. Повторный вызов для уже
// оплаченной транзакции не ошибка. Отсутствующая транзакция — ошибка.
func (s *Storage) MarkPaid(ctx context.Context, transactionID string) error {
	const op = "storage.MarkPaid"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payment_transactions SET status = 'paid'
			  WHERE transaction_id = $1`
	result, err := s.DB.ExecContext(ctx, query, transactionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrTransactionNotFound)
	}
	return nil
}
