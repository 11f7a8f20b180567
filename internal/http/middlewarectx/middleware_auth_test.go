package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	libjwt "github.com/soloviovd/vpn-subscription-service/internal/lib/jwt"
)

func TestJWTMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	maker := libjwt.NewJWTMaker("test-secret", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		service, _ := r.Context().Value(Service).(string)
		w.Header().Set("X-Service", service)
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTMiddleware(maker, logger)(next)

	t.Run("валидный токен пропускается и кладёт сервис в контекст", func(t *testing.T) {
		token, err := maker.GenerateToken("telegram-bot")
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "telegram-bot", rr.Header().Get("X-Service"))
	})

	t.Run("отсутствие заголовка — 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "missing or invalid authorization header")
	})

	t.Run("чужой токен — 401", func(t *testing.T) {
		other := libjwt.NewJWTMaker("other-secret", time.Hour)
		token, err := other.GenerateToken("telegram-bot")
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid or expired token")
	})
}
