// Package link реализует HTTP-обработчик для создания платёжной ссылки.
//
// Handler принимает JSON-запрос с идентификатором пользователя и планом,
// валидирует его, вызывает бизнес-логику формирования ссылки и возвращает
// ссылку и номер транзакции в JSON-формате.
package link

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/soloviovd/vpn-subscription-service/internal/http/response"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
	"github.com/soloviovd/vpn-subscription-service/internal/services/payment"
)

// Service описывает интерфейс бизнес-логики создания платёжной ссылки.
type Service interface {
	CreatePaymentLink(ctx context.Context, userUID string, plan models.SubscriptionPlan) (*payment.CreatedPaymentLink, error)
}

// Handler управляет HTTP-запросами на создание платёжных ссылок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.link"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	link, err := h.service.CreatePaymentLink(r.Context(), req.UserUID, models.SubscriptionPlan(req.Plan))
	if err != nil {
		log.Error("failed to create payment link", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create payment link"))
		return
	}

	log.Info("created payment link", slog.String("transaction_id", link.TransactionID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"url":            link.URL,
		"transaction_id": link.TransactionID,
	}))
}
