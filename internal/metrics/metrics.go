// Package metrics регистрирует prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PaymentsConfirmedTotal количество подтверждённых платежей
	PaymentsConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Total number of successfully verified payment callbacks",
		},
	)
	// PaymentsRejectedTotal количество колбэков с неверной подписью
	PaymentsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_rejected_total",
			Help: "Total number of payment callbacks rejected by signature check",
		},
	)
	// SubscriptionsExpiredTotal количество деактивированных подписок
	SubscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions marked expired by the sweep",
		},
	)
	// RevocationLegFailuresTotal неудачные шаги отзыва доступа по внешним системам
	RevocationLegFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocation_leg_failures_total",
			Help: "Total number of failed revocation legs per external system",
		},
		[]string{"leg"},
	)
	// SweepDuration длительность одного прохода свипа
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "sweep_duration_seconds",
			Help: "Duration of a single expiration sweep pass in seconds",
		},
	)
)

func init() {
	prometheus.MustRegister(PaymentsConfirmedTotal)
	prometheus.MustRegister(PaymentsRejectedTotal)
	prometheus.MustRegister(SubscriptionsExpiredTotal)
	prometheus.MustRegister(RevocationLegFailuresTotal)
	prometheus.MustRegister(SweepDuration)
}
