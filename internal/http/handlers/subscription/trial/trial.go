// Package trial реализует HTTP-обработчик для создания пробной подписки.
package trial

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
)

// Service описывает интерфейс создания пробной подписки.
type Service interface {
	CreateTrial(ctx context.Context, userUID string) (string, error)
}

// Handler управляет HTTP-запросами на создание пробных подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.trial"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateTrialRequest
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

	id, err := h.service.CreateTrial(r.Context(), req.UserUID)
	if err != nil {
		log.Error("failed to create trial subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create subscription"))
		return
	}

	log.Info("created trial subscription", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription_id": id,
	}))
}
