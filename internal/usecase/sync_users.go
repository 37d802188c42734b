package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/queue"
)

const (
	SyncOutcomeEmpty      = "empty"
	SyncOutcomeAuthFailed = "auth_failed"
	SyncOutcomeCompleted  = "completed"
	SyncOutcomeAborted    = "aborted"
)

// SyncUsersUseCase pushes pending users to the CRM and records the outcome
// on each row.
type SyncUsersUseCase struct {
	Repo      entity.UserRepositoryInterface
	CRM       CRMClient
	Publisher SyncEventPublisher
	Reporter  ReportSender
	Metrics   SyncMetrics

	// held for a whole run so overlapping triggers never push the same row twice
	mu sync.Mutex
}

type SyncOption func(*SyncUsersUseCase)

func WithEventPublisher(p SyncEventPublisher) SyncOption {
	return func(uc *SyncUsersUseCase) {
		uc.Publisher = p
	}
}

func WithReportSender(r ReportSender) SyncOption {
	return func(uc *SyncUsersUseCase) {
		uc.Reporter = r
	}
}

func WithSyncMetrics(m SyncMetrics) SyncOption {
	return func(uc *SyncUsersUseCase) {
		uc.Metrics = m
	}
}

func NewSyncUsersUseCase(repo entity.UserRepositoryInterface, crm CRMClient, opts ...SyncOption) *SyncUsersUseCase {
	uc := &SyncUsersUseCase{
		Repo: repo,
		CRM:  crm,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute runs one sync pass. A token failure aborts the run before any row
// is touched; a push failure marks only that row as failed. The returned
// error is reserved for store failures and cancellation.
func (uc *SyncUsersUseCase) Execute(ctx context.Context) (SyncOutput, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	start := time.Now()
	var out SyncOutput

	pending, err := uc.Repo.ListByStatus(ctx, entity.SyncStatusPending)
	if err != nil {
		return out, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to list pending users: " + err.Error(),
			Err:     err,
		}
	}

	if len(pending) == 0 {
		slog.Info("No pending users to sync")
		uc.recordRun(SyncOutcomeEmpty, start)
		return out, nil
	}

	slog.Info("Found pending users to sync", "count", len(pending))

	token, err := uc.CRM.AcquireToken(ctx)
	if err != nil {
		// nothing was attempted, so nothing is marked failed
		slog.Error("Failed to obtain CRM token, aborting sync", "pending", len(pending), "error", err)
		uc.recordRun(SyncOutcomeAuthFailed, start)
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return out, ctxErr
		}
		return out, nil
	}

	var failedEmails []string
	for _, user := range pending {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			uc.recordRun(SyncOutcomeAborted, start)
			return out, ctxErr
		}

		crmID, pushErr := uc.CRM.PushUser(ctx, user, token)
		if pushErr != nil {
			if ctxErr := context.Cause(ctx); ctxErr != nil {
				// the push was interrupted, not refused; leave the row pending
				uc.recordRun(SyncOutcomeAborted, start)
				return out, ctxErr
			}

			out.Failed++
			failedEmails = append(failedEmails, user.Email)
			slog.Error("Failed to sync user", "user_id", user.ID, "email", user.Email, "error", pushErr)

			if err := uc.Repo.MarkFailed(ctx, user.ID); err != nil {
				slog.Error("Failed to record sync failure", "user_id", user.ID, "error", err)
			}
			uc.recordUser(entity.SyncStatusFailed)
			uc.publish(ctx, user, nil, entity.SyncStatusFailed)
			continue
		}

		out.Succeeded++
		if err := uc.Repo.MarkSynced(ctx, user.ID, crmID); err != nil {
			slog.Error("Failed to record sync success", "user_id", user.ID, "crm_id", crmID, "error", err)
		} else {
			slog.Info("✅ User synced", "email", user.Email, "crm_id", crmID)
		}
		uc.recordUser(entity.SyncStatusSynced)
		uc.publish(ctx, user, &crmID, entity.SyncStatusSynced)
	}

	uc.recordRun(SyncOutcomeCompleted, start)
	slog.Info("Sync run finished", "synced", out.Succeeded, "failed", out.Failed, "duration", time.Since(start))

	if out.Failed > 0 && uc.Reporter != nil {
		if err := uc.Reporter.SendSyncReport(out.Succeeded, out.Failed, failedEmails); err != nil {
			slog.Warn("Failed to send sync report", "error", err)
		}
	}

	return out, nil
}

func (uc *SyncUsersUseCase) publish(ctx context.Context, user *entity.User, crmID *string, status entity.SyncStatus) {
	if uc.Publisher == nil {
		return
	}
	payload := queue.SyncEventPayload{
		UserID:     user.ID,
		Email:      user.Email,
		Status:     string(status),
		OccurredAt: time.Now().UTC(),
	}
	if crmID != nil {
		payload.CRMID = *crmID
	}
	// the row is already written; a lost event is only logged
	if err := uc.Publisher.PublishSyncEvent(ctx, payload); err != nil {
		slog.Warn("Failed to publish sync event", "user_id", user.ID, "error", err)
	}
}

func (uc *SyncUsersUseCase) recordUser(status entity.SyncStatus) {
	if uc.Metrics != nil {
		uc.Metrics.RecordUserSync(string(status))
	}
}

func (uc *SyncUsersUseCase) recordRun(outcome string, start time.Time) {
	if uc.Metrics != nil {
		uc.Metrics.RecordSyncRun(outcome, time.Since(start))
	}
}

// Run adapts Execute for the scheduler, the queue worker and the insert listener.
func (uc *SyncUsersUseCase) Run(ctx context.Context) (int, int, error) {
	out, err := uc.Execute(ctx)
	return out.Succeeded, out.Failed, err
}
