package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/queue"
)

// CRMClient is the remote side of a sync run.
type CRMClient interface {
	AcquireToken(ctx context.Context) (string, error)
	PushUser(ctx context.Context, u *entity.User, token string) (string, error)
}

type SyncEventPublisher interface {
	PublishSyncEvent(ctx context.Context, payload queue.SyncEventPayload) error
}

type ReportSender interface {
	SendSyncReport(succeeded, failed int, failedEmails []string) error
}

type SyncMetrics interface {
	RecordUserSync(status string)
	RecordSyncRun(outcome string, duration time.Duration)
}

type CreateUserUseCase struct {
	Repo entity.UserRepositoryInterface
}

type ApplyWebhookUseCase struct {
	Repo entity.UserRepositoryInterface
}
