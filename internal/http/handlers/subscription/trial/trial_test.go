package trial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService реализует интерфейс trial.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateTrial(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

func TestTrialHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	userUID := "7b8e1a85-3c51-4d77-9f0a-2f9d03a9f2bc"

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное создание пробной подписки",
			body: `{"user_uid":"` + userUID + `"}`,
			setupMock: func(m *MockService) {
				m.On("CreateTrial", mock.Anything, userUID).Return("sub-1", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"subscription_id":"sub-1"`,
		},
		{
			name:           "некорректное тело запроса",
			body:           `{not json`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "user_uid не uuid",
			body:           `{"user_uid":"not-a-uuid"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `can contain only uuid`,
		},
		{
			name:           "user_uid отсутствует",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `is a required field`,
		},
		{
			name: "ошибка сервиса",
			body: `{"user_uid":"` + userUID + `"}`,
			setupMock: func(m *MockService) {
				m.On("CreateTrial", mock.Anything, userUID).Return("", errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not create subscription`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)
			handler := New(logger, service)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/trial", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			service.AssertExpectations(t)
		})
	}
}
