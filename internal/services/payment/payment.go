// Package payment содержит бизнес-логику платёжного контура:
// формирование платёжной ссылки Robokassa и проверку входящего
// колбэка ResultURL. Проверка подписи колбэка — единственный
// авторизационный барьер перед выдачей платного доступа.
package payment

import (
	"context"
	"crypto/hmac"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soloviovd/vpn-subscription-service/internal/config"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/robokassa"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/metrics"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// TransactionRepository определяет методы для работы с транзакциями в хранилище.
type TransactionRepository interface {
	// CreateTransaction добавляет новую транзакцию и возвращает её номер.
	CreateTransaction(ctx context.Context, tx models.PaymentTransaction) (string, error)
	// FindTransaction возвращает транзакцию по номеру или nil.
	FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	// MarkPaid переводит транзакцию в статус paid.
	MarkPaid(ctx context.Context, transactionID string) error
}

// CreatedPaymentLink результат формирования платёжной ссылки.
type CreatedPaymentLink struct {
	URL           string // Ссылка для оплаты
	TransactionID string // Номер счёта, он же InvId
}

// ConfirmationResult результат успешной проверки колбэка.
// AlreadyPaid выставляется при повторной доставке колбэка:
// провайдер шлёт ResultURL минимум один раз, повторы ожидаемы.
type ConfirmationResult struct {
	Transaction *models.PaymentTransaction
	AlreadyPaid bool
}

// Service реализует платёжный контур поверх репозитория транзакций.
type Service struct {
	repo   TransactionRepository
	cfg    config.Robokassa
	policy robokassa.FormattingPolicy
	isTest bool
	log    *slog.Logger
}

// New создает новый Service. В тестовом режиме суммы передаются как есть
// и в ссылке выставляется IsTest=1, в боевом — шесть знаков после запятой.
func New(repo TransactionRepository, cfg config.Robokassa, production bool, log *slog.Logger) *Service {
	policy := robokassa.FormatFixed
	if !production {
		policy = robokassa.FormatPlain
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		policy: policy,
		isTest: !production,
		log:    log,
	}
}

// CreatePaymentLink формирует ссылку на оплату выбранного плана.
// Транзакция со статусом pending сохраняется до возврата ссылки:
// ссылка без строки в леджере не выдаётся никогда.
func (s *Service) CreatePaymentLink(ctx context.Context, userUID string, plan models.SubscriptionPlan) (*CreatedPaymentLink, error) {
	const op = "payment.CreatePaymentLink"
	log := s.log.With(slog.String("op", op), sl.UserUID(userUID))

	info, ok := models.PaidPlans[plan]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrUnknownPlan, plan)
	}

	outSum := s.policy.FormatAmount(info.Amount)
	invID := newInvoiceID()

	receipt, err := robokassa.EncodeReceipt(info.Description, outSum)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	signature, err := robokassa.Sign(robokassa.SignaturePay, robokassa.SignaturePayload{
		MerchantLogin: s.cfg.MerchantLogin,
		OutSum:        outSum,
		InvID:         invID,
		Receipt:       receipt,
		Secret:        s.cfg.PasswordPay,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx := models.PaymentTransaction{
		TransactionID: invID,
		UserUID:       userUID,
		Plan:          plan,
		Amount:        info.Amount,
		Currency:      "RUB",
		Description:   info.Description,
		PaymentMethod: "robokassa",
		Status:        models.PaymentPending,
		CreatedAt:     time.Now(),
	}
	if _, err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	isTest := "0"
	if s.isTest {
		isTest = "1"
	}
	params := url.Values{}
	params.Set("MerchantLogin", s.cfg.MerchantLogin)
	params.Set("OutSum", outSum)
	params.Set("InvId", invID)
	params.Set("Description", info.Description)
	params.Set("Culture", s.cfg.Culture)
	params.Set("IsTest", isTest)
	params.Set("SignatureValue", signature)
	params.Set("Receipt", receipt)

	log.Info("created payment link", slog.String("transaction_id", invID), slog.String("plan", string(plan)))

	return &CreatedPaymentLink{
		URL:           s.cfg.PaymentURL + "?" + params.Encode(),
		TransactionID: invID,
	}, nil
}

// ConfirmPayment проверяет подпись входящего колбэка ResultURL.
//
// Возвращает nil без ошибки для неизвестной транзакции и для неверной
// подписи: это штатный отрицательный результат, а не сбой системы.
// Пустой пароль проверки — ошибка конфигурации и возвращается как ошибка.
// Повторный вызов с той же верной подписью снова возвращает транзакцию.
func (s *Service) ConfirmPayment(ctx context.Context, invID, signatureValue string) (*ConfirmationResult, error) {
	const op = "payment.ConfirmPayment"
	log := s.log.With(slog.String("op", op), slog.String("transaction_id", invID))

	tx, err := s.repo.FindTransaction(ctx, invID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tx == nil {
		log.Warn("transaction not found")
		return nil, nil
	}

	if strings.TrimSpace(s.cfg.PasswordCheck) == "" {
		log.Error("robokassa check password is not configured")
		return nil, fmt.Errorf("%s: %w", op, robokassa.ErrEmptySecret)
	}

	expected, err := robokassa.Sign(robokassa.SignatureCheck, robokassa.SignaturePayload{
		OutSum: s.policy.FormatAmount(tx.Amount),
		InvID:  invID,
		Secret: s.cfg.PasswordCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !hmac.Equal([]byte(expected), []byte(strings.ToUpper(signatureValue))) {
		log.Error("signature mismatch")
		metrics.PaymentsRejectedTotal.Inc()
		return nil, nil
	}

	if tx.Status == models.PaymentPaid {
		log.Info("transaction already paid")
		return &ConfirmationResult{Transaction: tx, AlreadyPaid: true}, nil
	}

	if err := s.repo.MarkPaid(ctx, invID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tx.Status = models.PaymentPaid
	metrics.PaymentsConfirmedTotal.Inc()
	log.Info("payment confirmed")

	return &ConfirmationResult{Transaction: tx}, nil
}

// newInvoiceID генерирует номер счёта: миллисекунды времени плюс случайный
// суффикс, обрезанные до десяти символов под числовой InvId провайдера.
func newInvoiceID() string {
	id := strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.Itoa(rand.IntN(1000))
	if len(id) > 10 {
		id = id[:10]
	}
	return id
}
