package models

import "time"

// PaymentStatus статус платёжной транзакции.
type PaymentStatus string

const (
	// PaymentPending транзакция создана, оплата не подтверждена.
	PaymentPending PaymentStatus = "pending"
	// PaymentPaid оплата подтверждена колбэком провайдера. Обратного перехода нет.
	PaymentPaid PaymentStatus = "paid"
)

// PaymentTransaction представляет платёжную транзакцию Robokassa.
// TransactionID совпадает с InvId в ссылке и колбэке провайдера.
type PaymentTransaction struct {
	TransactionID string           // Номер счёта (InvId), уникален
	UserUID       string           // Идентификатор пользователя
	Plan          SubscriptionPlan // План, который оплачивает пользователь
	Amount        float64          // Сумма платежа
	Currency      string           // Валюта, всегда RUB
	Description   string           // Назначение платежа
	PaymentMethod string           // Способ оплаты
	Status        PaymentStatus    // pending или paid
	CreatedAt     time.Time        // Дата создания
}
