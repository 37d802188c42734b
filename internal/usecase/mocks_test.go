package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/queue"
)

// MockUserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByCRMID(ctx context.Context, crmID string) (*entity.User, error) {
	args := m.Called(ctx, crmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) ListByStatus(ctx context.Context, status entity.SyncStatus) ([]*entity.User, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) MarkSynced(ctx context.Context, id, crmID string) error {
	args := m.Called(ctx, id, crmID)
	return args.Error(0)
}

func (m *MockUserRepository) MarkFailed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ApplyPatch(ctx context.Context, id string, patch entity.UserPatch, at time.Time) error {
	args := m.Called(ctx, id, patch, at)
	return args.Error(0)
}

// MockCRMClient
type MockCRMClient struct {
	mock.Mock
}

func (m *MockCRMClient) AcquireToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCRMClient) PushUser(ctx context.Context, u *entity.User, token string) (string, error) {
	args := m.Called(ctx, u, token)
	return args.String(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishSyncEvent(ctx context.Context, payload queue.SyncEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockReportSender struct {
	mock.Mock
}

func (m *MockReportSender) SendSyncReport(succeeded, failed int, failedEmails []string) error {
	args := m.Called(succeeded, failed, failedEmails)
	return args.Error(0)
}

type MockSyncMetrics struct {
	mock.Mock
}

func (m *MockSyncMetrics) RecordUserSync(status string) {
	m.Called(status)
}

func (m *MockSyncMetrics) RecordSyncRun(outcome string, d time.Duration) {
	m.Called(outcome, d)
}

func pendingUser(id, email string) *entity.User {
	return &entity.User{
		ID:         id,
		Name:       "User " + id,
		Email:      email,
		Phone:      "555-0100",
		SyncStatus: entity.SyncStatusPending,
	}
}

func strPtr(s string) *string {
	return &s
}
