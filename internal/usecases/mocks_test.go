package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"autodeposit.backend/internal/domain/entities"
	"autodeposit.backend/internal/domain/repositories"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock DepositRequestRepository
type MockDepositRequestRepository struct {
	mock.Mock
}

func (m *MockDepositRequestRepository) Create(ctx context.Context, request *entities.DepositRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockDepositRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.DepositRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DepositRequest), args.Error(1)
}

func (m *MockDepositRequestRepository) FindCandidates(ctx context.Context, q repositories.CandidateQuery) ([]*entities.DepositRequest, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DepositRequest), args.Error(1)
}

func (m *MockDepositRequestRepository) Transition(ctx context.Context, t entities.StatusTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockDepositRequestRepository) ListPendingOlderThan(ctx context.Context, before time.Time, limit, offset int) ([]*entities.DepositRequest, int, error) {
	args := m.Called(ctx, before, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.DepositRequest), args.Int(1), args.Error(2)
}

// Mock IncomingPaymentRepository
type MockIncomingPaymentRepository struct {
	mock.Mock
}

func (m *MockIncomingPaymentRepository) Create(ctx context.Context, payment *entities.IncomingPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockIncomingPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.IncomingPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.IncomingPayment), args.Error(1)
}

func (m *MockIncomingPaymentRepository) GetByDedupKey(ctx context.Context, dedupKey string) (*entities.IncomingPayment, error) {
	args := m.Called(ctx, dedupKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.IncomingPayment), args.Error(1)
}

func (m *MockIncomingPaymentRepository) MarkProcessed(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, requestID, at)
	return args.Error(0)
}

func (m *MockIncomingPaymentRepository) SetReviewReason(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockIncomingPaymentRepository) ListUnmatched(ctx context.Context, limit, offset int) ([]*entities.IncomingPayment, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.IncomingPayment), args.Int(1), args.Error(2)
}

func (m *MockIncomingPaymentRepository) ListUnprocessedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// Mock SettingRepository
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// staticSettings is a fixed SettingsProvider.
type staticSettings entities.ReconcileSettings

func (s staticSettings) Effective(context.Context) (entities.ReconcileSettings, error) {
	return entities.ReconcileSettings(s), nil
}
