package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soloviovd/vpn-subscription-service/internal/models"
	"github.com/soloviovd/vpn-subscription-service/internal/services/payment"
)

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Create(ctx context.Context, userUID string, plan models.SubscriptionPlan) (string, error) {
	args := m.Called(ctx, userUID, plan)
	return args.String(0), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePaymentLink(ctx context.Context, userUID string, plan models.SubscriptionPlan) (*payment.CreatedPaymentLink, error) {
	args := m.Called(ctx, userUID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CreatedPaymentLink), args.Error(1)
}

func (m *MockPaymentService) ConfirmPayment(ctx context.Context, invID, signatureValue string) (*payment.ConfirmationResult, error) {
	args := m.Called(ctx, invID, signatureValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ConfirmationResult), args.Error(1)
}

type MockAccessGranter struct {
	mock.Mock
}

func (m *MockAccessGranter) Grant(ctx context.Context, userUID string) error {
	args := m.Called(ctx, userUID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newFacade(subs *MockSubscriptionService, payments *MockPaymentService, access *MockAccessGranter) *Facade {
	return New(subs, payments, access, newNoopLogger())
}

func TestFacade_CreateTrial(t *testing.T) {
	t.Run("creates subscription and grants access", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		subs.On("Create", mock.Anything, "user123", models.PlanTrial).Return("sub-1", nil).Once()
		access.On("Grant", mock.Anything, "user123").Return(nil).Once()

		id, err := f.CreateTrial(context.Background(), "user123")

		require.NoError(t, err)
		assert.Equal(t, "sub-1", id)
		subs.AssertExpectations(t)
		access.AssertExpectations(t)
	})

	t.Run("grant failure does not fail the trial", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		subs.On("Create", mock.Anything, "user123", models.PlanTrial).Return("sub-1", nil).Once()
		access.On("Grant", mock.Anything, "user123").Return(errors.New("panel down")).Once()

		id, err := f.CreateTrial(context.Background(), "user123")

		require.NoError(t, err)
		assert.Equal(t, "sub-1", id)
	})

	t.Run("create failure stops everything", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		subs.On("Create", mock.Anything, "user123", models.PlanTrial).
			Return("", errors.New("db error")).Once()

		id, err := f.CreateTrial(context.Background(), "user123")

		assert.Error(t, err)
		assert.Empty(t, id)
		access.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	})
}

func TestFacade_ConfirmPayment(t *testing.T) {
	tx := &models.PaymentTransaction{
		TransactionID: "1700000001",
		UserUID:       "user123",
		Plan:          models.PlanOneMonth,
		Status:        models.PaymentPaid,
	}

	t.Run("first confirmation activates the subscription", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		payments.On("ConfirmPayment", mock.Anything, "1700000001", "SIG").
			Return(&payment.ConfirmationResult{Transaction: tx}, nil).Once()
		subs.On("Create", mock.Anything, "user123", models.PlanOneMonth).Return("sub-2", nil).Once()
		access.On("Grant", mock.Anything, "user123").Return(nil).Once()

		id, err := f.ConfirmPayment(context.Background(), "1700000001", "SIG")

		require.NoError(t, err)
		assert.Equal(t, "1700000001", id)
		subs.AssertExpectations(t)
		access.AssertExpectations(t)
	})

	t.Run("duplicate callback does not activate twice", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		payments.On("ConfirmPayment", mock.Anything, "1700000001", "SIG").
			Return(&payment.ConfirmationResult{Transaction: tx, AlreadyPaid: true}, nil).Once()

		id, err := f.ConfirmPayment(context.Background(), "1700000001", "SIG")

		require.NoError(t, err)
		assert.Equal(t, "1700000001", id)
		subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		access.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	})

	t.Run("rejected callback yields empty transaction id", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		payments.On("ConfirmPayment", mock.Anything, "1700000001", "BAD").
			Return(nil, nil).Once()

		id, err := f.ConfirmPayment(context.Background(), "1700000001", "BAD")

		require.NoError(t, err)
		assert.Empty(t, id)
		subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("verification error propagates", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		payments.On("ConfirmPayment", mock.Anything, "1700000001", "SIG").
			Return(nil, errors.New("db error")).Once()

		id, err := f.ConfirmPayment(context.Background(), "1700000001", "SIG")

		assert.Error(t, err)
		assert.Empty(t, id)
	})

	t.Run("activation failure still acknowledges the payment", func(t *testing.T) {
		subs := new(MockSubscriptionService)
		payments := new(MockPaymentService)
		access := new(MockAccessGranter)
		f := newFacade(subs, payments, access)

		payments.On("ConfirmPayment", mock.Anything, "1700000001", "SIG").
			Return(&payment.ConfirmationResult{Transaction: tx}, nil).Once()
		subs.On("Create", mock.Anything, "user123", models.PlanOneMonth).
			Return("", errors.New("db error")).Once()

		id, err := f.ConfirmPayment(context.Background(), "1700000001", "SIG")

		require.NoError(t, err)
		assert.Equal(t, "1700000001", id)
		access.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	})
}
