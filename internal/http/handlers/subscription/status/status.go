// Package status реализует HTTP-обработчик чтения статуса подписки пользователя.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/soloviovd/vpn-subscription-service/internal/http/response"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/sl"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

// Service описывает интерфейс чтения действующей подписки.
type Service interface {
	ActiveByUser(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Handler управляет HTTP-запросами на чтение статуса подписки.
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
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "userUID")
	if _, err := uuid.Parse(userUID); err != nil {
		log.Error("invalid user uid", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user uid"))
		return
	}

	sub, err := h.service.ActiveByUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}
	if sub == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription_id": sub.ID,
		"plan":            sub.Plan,
		"start_date":      sub.StartDate,
		"end_date":        sub.EndDate,
		"status":          sub.Status,
	}))
}
