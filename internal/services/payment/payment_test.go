package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soloviovd/vpn-subscription-service/internal/config"
	"github.com/soloviovd/vpn-subscription-service/internal/lib/robokassa"
	"github.com/soloviovd/vpn-subscription-service/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTransaction(ctx context.Context, tx models.PaymentTransaction) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentTransaction), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testConfig() config.Robokassa {
	return config.Robokassa{
		PaymentURL:    "https://auth.robokassa.ru/Merchant/Index.aspx",
		MerchantLogin: "demo_shop",
		PasswordPay:   "password1",
		PasswordCheck: "password2",
		Culture:       "ru",
	}
}

func TestService_CreatePaymentLink(t *testing.T) {
	repo := new(MockRepository)
	service := New(repo, testConfig(), false, newNoopLogger())

	var savedTx models.PaymentTransaction
	repo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tx models.PaymentTransaction) bool {
		savedTx = tx
		return tx.UserUID == "user123" &&
			tx.Plan == models.PlanOneMonth &&
			tx.Status == models.PaymentPending
	})).Return("", nil).Once()

	result, err := service.CreatePaymentLink(context.Background(), "user123", models.PlanOneMonth)
	require.NoError(t, err)
	require.NotNil(t, result)

	parsed, err := url.Parse(result.URL)
	require.NoError(t, err)
	query := parsed.Query()

	assert.Equal(t, "demo_shop", query.Get("MerchantLogin"))
	assert.Equal(t, "190", query.Get("OutSum"))
	assert.Equal(t, result.TransactionID, query.Get("InvId"))
	assert.Equal(t, "1", query.Get("IsTest"))
	assert.Equal(t, savedTx.TransactionID, result.TransactionID)
	assert.InDelta(t, 190.0, savedTx.Amount, 0.001)
	assert.LessOrEqual(t, len(result.TransactionID), 10)

	// Подпись в ссылке должна сходиться при независимом вычислении.
	expectedSig, err := robokassa.Sign(robokassa.SignaturePay, robokassa.SignaturePayload{
		MerchantLogin: "demo_shop",
		OutSum:        "190",
		InvID:         result.TransactionID,
		Receipt:       query.Get("Receipt"),
		Secret:        "password1",
	})
	require.NoError(t, err)
	assert.Equal(t, expectedSig, query.Get("SignatureValue"))

	repo.AssertExpectations(t)
}

func TestService_CreatePaymentLink_Errors(t *testing.T) {
	tests := []struct {
		name       string
		plan       models.SubscriptionPlan
		setupMocks func(*MockRepository)
		wantErr    error
	}{
		{
			name:       "unknown plan",
			plan:       models.SubscriptionPlan("lifetime"),
			setupMocks: func(r *MockRepository) {},
			wantErr:    models.ErrUnknownPlan,
		},
		{
			name: "trial plan has no price",
			plan: models.PlanTrial,
			setupMocks: func(r *MockRepository) {
			},
			wantErr: models.ErrUnknownPlan,
		},
		{
			name: "repository error",
			plan: models.PlanSixMonths,
			setupMocks: func(r *MockRepository) {
				r.On("CreateTransaction", mock.Anything, mock.Anything).
					Return("", errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service := New(repo, testConfig(), false, newNoopLogger())
			tt.setupMocks(repo)

			result, err := service.CreatePaymentLink(context.Background(), "user123", tt.plan)

			assert.Error(t, err)
			assert.Nil(t, result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			repo.AssertExpectations(t)
		})
	}
}

func checkSignature(t *testing.T, outSum, invID, secret string) string {
	t.Helper()
	sig, err := robokassa.Sign(robokassa.SignatureCheck, robokassa.SignaturePayload{
		OutSum: outSum,
		InvID:  invID,
		Secret: secret,
	})
	require.NoError(t, err)
	return sig
}

func TestService_ConfirmPayment(t *testing.T) {
	pendingTx := func() *models.PaymentTransaction {
		return &models.PaymentTransaction{
			TransactionID: "1700000001",
			UserUID:       "user123",
			Plan:          models.PlanOneMonth,
			Amount:        190,
			Status:        models.PaymentPending,
		}
	}

	t.Run("valid signature confirms payment", func(t *testing.T) {
		repo := new(MockRepository)
		service := New(repo, testConfig(), false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(pendingTx(), nil).Once()
		repo.On("MarkPaid", mock.Anything, "1700000001").Return(nil).Once()

		sig := checkSignature(t, "190", "1700000001", "password2")
		result, err := service.ConfirmPayment(context.Background(), "1700000001", sig)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.False(t, result.AlreadyPaid)
		assert.Equal(t, models.PaymentPaid, result.Transaction.Status)
		assert.Equal(t, "user123", result.Transaction.UserUID)
		repo.AssertExpectations(t)
	})

	t.Run("lowercase signature accepted", func(t *testing.T) {
		repo := new(MockRepository)
		service := New(repo, testConfig(), false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(pendingTx(), nil).Once()
		repo.On("MarkPaid", mock.Anything, "1700000001").Return(nil).Once()

		sig := checkSignature(t, "190", "1700000001", "password2")
		result, err := service.ConfirmPayment(context.Background(), "1700000001", strings.ToLower(sig))

		require.NoError(t, err)
		require.NotNil(t, result)
		repo.AssertExpectations(t)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		repo := new(MockRepository)
		service := New(repo, testConfig(), false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "9999999999").Return(nil, nil).Once()

		result, err := service.ConfirmPayment(context.Background(), "9999999999", "ABCDEF")

		assert.NoError(t, err)
		assert.Nil(t, result)
		repo.AssertExpectations(t)
	})

	t.Run("signature mismatch leaves transaction pending", func(t *testing.T) {
		repo := new(MockRepository)
		service := New(repo, testConfig(), false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(pendingTx(), nil).Once()

		wrongSig := checkSignature(t, "190", "1700000001", "wrong_password")
		result, err := service.ConfirmPayment(context.Background(), "1700000001", wrongSig)

		assert.NoError(t, err)
		assert.Nil(t, result)
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("blank check password is a configuration error", func(t *testing.T) {
		repo := new(MockRepository)
		cfg := testConfig()
		cfg.PasswordCheck = ""
		service := New(repo, cfg, false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(pendingTx(), nil).Once()

		result, err := service.ConfirmPayment(context.Background(), "1700000001", "ABCDEF")

		assert.ErrorIs(t, err, robokassa.ErrEmptySecret)
		assert.Nil(t, result)
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
	})

	t.Run("repeated delivery marks result as already paid", func(t *testing.T) {
		paid := pendingTx()
		paid.Status = models.PaymentPaid

		repo := new(MockRepository)
		service := New(repo, testConfig(), false, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(paid, nil).Once()

		sig := checkSignature(t, "190", "1700000001", "password2")
		result, err := service.ConfirmPayment(context.Background(), "1700000001", sig)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.AlreadyPaid)
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("production policy uses fixed amount format", func(t *testing.T) {
		repo := new(MockRepository)
		service := New(repo, testConfig(), true, newNoopLogger())
		repo.On("FindTransaction", mock.Anything, "1700000001").Return(pendingTx(), nil).Once()
		repo.On("MarkPaid", mock.Anything, "1700000001").Return(nil).Once()

		sig := checkSignature(t, "190.000000", "1700000001", "password2")
		result, err := service.ConfirmPayment(context.Background(), "1700000001", sig)

		require.NoError(t, err)
		require.NotNil(t, result)
		repo.AssertExpectations(t)
	})
}
