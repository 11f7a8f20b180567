// Package models содержит доменные структуры подписки и платёжной транзакции,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import (
	"errors"
	"time"
)

// SubscriptionPlan тарифный план подписки.
type SubscriptionPlan string

const (
	// PlanTrial пробный период, не продаётся за деньги.
	PlanTrial SubscriptionPlan = "trial"
	// PlanOneMonth платная подписка на один календарный месяц.
	PlanOneMonth SubscriptionPlan = "one_month"
	// PlanSixMonths платная подписка на шесть календарных месяцев.
	PlanSixMonths SubscriptionPlan = "six_months"
)

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	// SubscriptionActive действующая подписка.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired истёкшая подписка, переход одноразовый и необратимый.
	SubscriptionExpired SubscriptionStatus = "expired"
)

// ErrUnknownPlan возвращается, когда план отсутствует в таблице длительностей.
var ErrUnknownPlan = errors.New("unknown subscription plan")

// Subscription представляет подписку пользователя на VPN-сервис.
// EndDate всегда строго больше StartDate.
type Subscription struct {
	ID        string             // Уникальный идентификатор подписки
	UserUID   string             // Идентификатор пользователя (UUID, выдаёт бот)
	Plan      SubscriptionPlan   // Тарифный план
	StartDate time.Time          // Дата начала
	EndDate   time.Time          // Дата окончания, StartDate + длительность плана
	Status    SubscriptionStatus // active или expired
	CreatedAt time.Time          // Дата создания записи
}

// PlanEndDate вычисляет дату окончания подписки по плану.
// Неизвестный план — ошибка, а не бессрочная подписка.
func PlanEndDate(start time.Time, plan SubscriptionPlan) (time.Time, error) {
	switch plan {
	case PlanTrial:
		return start.AddDate(0, 0, 7), nil
	case PlanOneMonth:
		return start.AddDate(0, 1, 0), nil
	case PlanSixMonths:
		return start.AddDate(0, 6, 0), nil
	default:
		return time.Time{}, ErrUnknownPlan
	}
}

// PaidPlanInfo описание платного плана для формирования платёжной ссылки.
type PaidPlanInfo struct {
	Description string  // Назначение платежа
	Amount      float64 // Цена в рублях
}

// PaidPlans таблица платных планов. Пробный период сюда не входит.
var PaidPlans = map[SubscriptionPlan]PaidPlanInfo{
	PlanOneMonth:  {Description: "Subscription for 1 month", Amount: 190},
	PlanSixMonths: {Description: "Subscription for 6 months", Amount: 990},
}

// ExpiredNotification событие об истечении подписки,
// публикуется в очередь уведомлений для бота.
type ExpiredNotification struct {
	UserUID string    `json:"user_uid"`
	Plan    string    `json:"plan"`
	EndDate time.Time `json:"end_date"`
}

// CreateTrialRequest используется для приёма запроса на создание пробной подписки.
type CreateTrialRequest struct {
	UserUID string `json:"user_uid" validate:"required,uuid"`
}

// CreateLinkRequest используется для приёма запроса на создание платёжной ссылки.
type CreateLinkRequest struct {
	UserUID string `json:"user_uid" validate:"required,uuid"`
	Plan    string `json:"plan" validate:"required,oneof=one_month six_months"`
}
