// Package result реализует обработчик ResultURL Robokassa.
//
// Провайдер присылает form-urlencoded POST с полями InvId, OutSum и
// SignatureValue и доставляет колбэк минимум один раз. Принятый платёж
// подтверждается телом вида OK<InvId>, любой другой ответ провайдер
// считает отказом и повторяет доставку.
package result

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
)

// Service описывает интерфейс подтверждения оплаты.
type Service interface {
	ConfirmPayment(ctx context.Context, invID, signatureValue string) (string, error)
}

// Handler обрабатывает колбэки ResultURL.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.result"
	log := h.log.With(slog.String("op", op))

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse callback form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	invID := r.PostForm.Get("InvId")
	signatureValue := r.PostForm.Get("SignatureValue")
	if invID == "" || signatureValue == "" {
		log.Error("callback missing InvId or SignatureValue")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	transactionID, err := h.service.ConfirmPayment(r.Context(), invID, signatureValue)
	if err != nil {
		log.Error("failed to confirm payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	if transactionID == "" {
		// Отказ: провайдер увидит не-OK тело и повторит доставку.
		_, _ = w.Write([]byte("bad sign"))
		return
	}
	_, _ = w.Write([]byte("OK" + transactionID))
}
