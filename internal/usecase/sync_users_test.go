package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/queue"
)

func TestSyncNoPendingUsersSkipsToken(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{}, nil)

	out, err := NewSyncUsersUseCase(repo, crm).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutput{}, out)
	crm.AssertNotCalled(t, "AcquireToken", mock.Anything)
	crm.AssertNotCalled(t, "PushUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncSinglePendingUser(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	user := pendingUser("u1", "a@x.com")

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{user}, nil)
	crm.On("AcquireToken", mock.Anything).Return("mock_token", nil).Once()
	crm.On("PushUser", mock.Anything, user, "mock_token").Return("CRM1", nil)
	repo.On("MarkSynced", mock.Anything, "u1", "CRM1").Return(nil)

	out, err := NewSyncUsersUseCase(repo, crm).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutput{Succeeded: 1, Failed: 0}, out)
	repo.AssertExpectations(t)
	crm.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestSyncTokenFailureLeavesUsersUntouched(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	metrics := new(MockSyncMetrics)
	users := []*entity.User{pendingUser("u1", "a@x.com"), pendingUser("u2", "b@x.com")}

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return(users, nil)
	crm.On("AcquireToken", mock.Anything).Return("", &AuthError{Err: errors.New("connection refused")})
	metrics.On("RecordSyncRun", SyncOutcomeAuthFailed, mock.Anything).Return()

	out, err := NewSyncUsersUseCase(repo, crm, WithSyncMetrics(metrics)).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutput{}, out)
	crm.AssertNotCalled(t, "PushUser", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkSynced", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
	metrics.AssertExpectations(t)
}

func TestSyncPushFailureIsIsolated(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	pub := new(MockEventPublisher)
	reporter := new(MockReportSender)
	u1 := pendingUser("u1", "a@x.com")
	u2 := pendingUser("u2", "b@x.com")
	u3 := pendingUser("u3", "c@x.com")

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1, u2, u3}, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil).Once()
	crm.On("PushUser", mock.Anything, u1, "tok").Return("CRM1", nil)
	crm.On("PushUser", mock.Anything, u2, "tok").Return("", &PushError{UserID: "u2", Err: errors.New("status 500")})
	crm.On("PushUser", mock.Anything, u3, "tok").Return("CRM3", nil)
	repo.On("MarkSynced", mock.Anything, "u1", "CRM1").Return(nil)
	repo.On("MarkFailed", mock.Anything, "u2").Return(nil)
	repo.On("MarkSynced", mock.Anything, "u3", "CRM3").Return(nil)
	pub.On("PublishSyncEvent", mock.Anything, mock.MatchedBy(func(p queue.SyncEventPayload) bool {
		return p.Status == "synced" && p.CRMID != ""
	})).Return(nil).Twice()
	pub.On("PublishSyncEvent", mock.Anything, mock.MatchedBy(func(p queue.SyncEventPayload) bool {
		return p.Status == "failed" && p.UserID == "u2" && p.CRMID == ""
	})).Return(nil).Once()
	reporter.On("SendSyncReport", 2, 1, []string{"b@x.com"}).Return(nil)

	uc := NewSyncUsersUseCase(repo, crm, WithEventPublisher(pub), WithReportSender(reporter))
	out, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutput{Succeeded: 2, Failed: 1}, out)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
	reporter.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, "u1")
	repo.AssertNotCalled(t, "MarkSynced", mock.Anything, "u2", mock.Anything)
	crm.AssertNumberOfCalls(t, "AcquireToken", 1)
}

func TestSyncAllFailuresCountEveryUser(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	users := []*entity.User{pendingUser("u1", "a@x.com"), pendingUser("u2", "b@x.com")}

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return(users, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil)
	crm.On("PushUser", mock.Anything, mock.Anything, "tok").Return("", errors.New("unreachable"))
	repo.On("MarkFailed", mock.Anything, mock.Anything).Return(nil)

	out, err := NewSyncUsersUseCase(repo, crm).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutput{Succeeded: 0, Failed: 2}, out)
	repo.AssertNumberOfCalls(t, "MarkFailed", 2)
}

func TestSyncStoreWriteErrorDoesNotStopBatch(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	u1 := pendingUser("u1", "a@x.com")
	u2 := pendingUser("u2", "b@x.com")

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1, u2}, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil)
	crm.On("PushUser", mock.Anything, u1, "tok").Return("CRM1", nil)
	crm.On("PushUser", mock.Anything, u2, "tok").Return("CRM2", nil)
	repo.On("MarkSynced", mock.Anything, "u1", "CRM1").Return(errors.New("conn reset"))
	repo.On("MarkSynced", mock.Anything, "u2", "CRM2").Return(nil)

	out, err := NewSyncUsersUseCase(repo, crm).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, out.Succeeded)
	repo.AssertExpectations(t)
}

func TestSyncListErrorIsTechnical(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return(nil, errors.New("db down"))

	_, err := NewSyncUsersUseCase(repo, crm).Execute(context.Background())

	assert.True(t, IsTechnicalError(err))
	crm.AssertNotCalled(t, "AcquireToken", mock.Anything)
}

func TestSyncCancelledMidRunLeavesRemainingPending(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	u1 := pendingUser("u1", "a@x.com")
	u2 := pendingUser("u2", "b@x.com")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1, u2}, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil)
	crm.On("PushUser", mock.Anything, u1, "tok").Return("", context.Canceled).Run(func(mock.Arguments) { cancel() })

	out, err := NewSyncUsersUseCase(repo, crm).Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, SyncOutput{}, out)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
	crm.AssertNotCalled(t, "PushUser", mock.Anything, u2, mock.Anything)
}

func TestSyncRecordsMetrics(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	metrics := new(MockSyncMetrics)
	u1 := pendingUser("u1", "a@x.com")

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1}, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil)
	crm.On("PushUser", mock.Anything, u1, "tok").Return("CRM1", nil)
	repo.On("MarkSynced", mock.Anything, "u1", "CRM1").Return(nil)
	metrics.On("RecordUserSync", "synced").Return().Once()
	metrics.On("RecordSyncRun", SyncOutcomeCompleted, mock.AnythingOfType("time.Duration")).Return().Once()

	_, err := NewSyncUsersUseCase(repo, crm, WithSyncMetrics(metrics)).Execute(context.Background())

	require.NoError(t, err)
	metrics.AssertExpectations(t)
}

// blockingCRM lets a test hold the first push open while a second run is started.
type blockingCRM struct {
	entered chan struct{}
	release chan struct{}
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (b *blockingCRM) AcquireToken(ctx context.Context) (string, error) {
	return "tok", nil
}

func (b *blockingCRM) PushUser(ctx context.Context, u *entity.User, token string) (string, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	if n > b.maxSeen.Load() {
		b.maxSeen.Store(n)
	}
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return "CRM-" + u.ID, nil
}

func TestSyncOverlappingRunsAreSerialized(t *testing.T) {
	repo := new(MockUserRepository)
	crm := &blockingCRM{entered: make(chan struct{}, 1), release: make(chan struct{})}
	u1 := pendingUser("u1", "a@x.com")

	// the second run sees no pending rows because the first already synced them
	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1}, nil).Once()
	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{}, nil).Once()
	repo.On("MarkSynced", mock.Anything, "u1", "CRM-u1").Return(nil).Once()

	uc := NewSyncUsersUseCase(repo, crm)

	var wg sync.WaitGroup
	results := make([]SyncOutput, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = uc.Execute(context.Background())
	}()
	<-crm.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = uc.Execute(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	close(crm.release)
	wg.Wait()

	assert.Equal(t, SyncOutput{Succeeded: 1}, results[0])
	assert.Equal(t, SyncOutput{}, results[1])
	assert.EqualValues(t, 1, crm.maxSeen.Load())
	repo.AssertNumberOfCalls(t, "MarkSynced", 1)
}

func TestSyncRunAdapter(t *testing.T) {
	repo := new(MockUserRepository)
	crm := new(MockCRMClient)
	u1 := pendingUser("u1", "a@x.com")

	repo.On("ListByStatus", mock.Anything, entity.SyncStatusPending).Return([]*entity.User{u1}, nil)
	crm.On("AcquireToken", mock.Anything).Return("tok", nil)
	crm.On("PushUser", mock.Anything, u1, "tok").Return("", errors.New("nope"))
	repo.On("MarkFailed", mock.Anything, "u1").Return(nil)

	synced, failed, err := NewSyncUsersUseCase(repo, crm).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 1, failed)
}
