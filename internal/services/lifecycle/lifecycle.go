// Package lifecycle предоставляет единую точку входа для внешних
// вызывающих сторон (бот, платёжный вебхук): создание пробной подписки,
// формирование платёжной ссылки и подтверждение оплаты с активацией
// оплаченной подписки.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
	"github.com/soloviovd/vpn-subscription-service/internal/services/payment"
)

// SubscriptionService описывает операции леджера подписок.
type SubscriptionService interface {
	Create(ctx context.Context, userUID string, plan models.SubscriptionPlan) (string, error)
}

// PaymentService описывает платёжный контур.
type PaymentService interface {
	CreatePaymentLink(ctx context.Context, userUID string, plan models.SubscriptionPlan) (*payment.CreatedPaymentLink, error)
	ConfirmPayment(ctx context.Context, invID, signatureValue string) (*payment.ConfirmationResult, error)
}

// AccessGranter выдаёт доступ на плоскости контроля при активации.
type AccessGranter interface {
	Grant(ctx context.Context, userUID string) error
}

// Facade связывает платёжный контур, леджер подписок и координатор доступа.
type Facade struct {
	subs     SubscriptionService
	payments PaymentService
	access   AccessGranter
	log      *slog.Logger
}

// New создает новый Facade.
func New(subs SubscriptionService, payments PaymentService, access AccessGranter, log *slog.Logger) *Facade {
	return &Facade{
		subs:     subs,
		payments: payments,
		access:   access,
		log:      log,
	}
}

// CreateTrial создает пробную подписку и выдаёт доступ.
func (f *Facade) CreateTrial(ctx context.Context, userUID string) (string, error) {
	const op = "lifecycle.CreateTrial"
	log := f.log.With(slog.String("op", op), sl.UserUID(userUID))

	id, err := f.subs.Create(ctx, userUID, models.PlanTrial)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := f.access.Grant(ctx, userUID); err != nil {
		log.Error("failed to grant access for trial", sl.Err(err))
	}
	return id, nil
}

// CreatePaymentLink формирует платёжную ссылку для платного плана.
func (f *Facade) CreatePaymentLink(ctx context.Context, userUID string, plan models.SubscriptionPlan) (*payment.CreatedPaymentLink, error) {
	return f.payments.CreatePaymentLink(ctx, userUID, plan)
}

// ConfirmPayment проверяет колбэк провайдера и при первом подтверждении
// активирует оплаченную подписку. Возвращает номер транзакции или пустую
// строку, если колбэк отвергнут.
//
// Повторная доставка колбэка с верной подписью снова возвращает номер
// транзакции, но подписка второй раз не создаётся.
func (f *Facade) ConfirmPayment(ctx context.Context, invID, signatureValue string) (string, error) {
	const op = "lifecycle.ConfirmPayment"
	log := f.log.With(slog.String("op", op), slog.String("transaction_id", invID))

	result, err := f.payments.ConfirmPayment(ctx, invID, signatureValue)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if result == nil {
		return "", nil
	}

	tx := result.Transaction
	if result.AlreadyPaid {
		log.Info("duplicate callback for paid transaction, skipping activation")
		return tx.TransactionID, nil
	}

	if _, err := f.subs.Create(ctx, tx.UserUID, tx.Plan); err != nil {
		// Деньги уже списаны, колбэк надо подтвердить. Активация
		// дожимается вручную по логу, терять подтверждение нельзя.
		log.Error("failed to activate paid subscription", sl.UserUID(tx.UserUID), sl.Err(err))
		return tx.TransactionID, nil
	}
	if err := f.access.Grant(ctx, tx.UserUID); err != nil {
		log.Error("failed to grant access after payment", sl.UserUID(tx.UserUID), sl.Err(err))
	}

	log.Info("paid subscription activated", sl.UserUID(tx.UserUID), slog.String("plan", string(tx.Plan)))
	return tx.TransactionID, nil
}
