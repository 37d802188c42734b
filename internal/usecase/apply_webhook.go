package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xavierca1/crm-sync/internal/entity"
)

func NewApplyWebhookUseCase(repo entity.UserRepositoryInterface) *ApplyWebhookUseCase {
	return &ApplyWebhookUseCase{Repo: repo}
}

// Execute patches the user the CRM knows as input.CRMID. It does not look at
// sync_status.
func (uc *ApplyWebhookUseCase) Execute(ctx context.Context, input WebhookInput) error {
	if errs := ValidateWebhookInput(input); len(errs) > 0 {
		return errs[0]
	}

	user, err := uc.Repo.FindByCRMID(ctx, input.CRMID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return &NotFoundError{Resource: "user", ID: input.CRMID}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to look up user: " + err.Error(), Err: err}
	}

	at := time.Now().UTC()
	if input.Timestamp != "" {
		// already validated
		at, _ = parseTimestamp(input.Timestamp)
	}

	patch := entity.UserPatch{
		Name:  input.UpdatedFields.Name,
		Email: input.UpdatedFields.Email,
		Phone: input.UpdatedFields.Phone,
	}

	if err := uc.Repo.ApplyPatch(ctx, user.ID, patch, at); err != nil {
		switch {
		case errors.Is(err, entity.ErrUserNotFound):
			return &NotFoundError{Resource: "user", ID: input.CRMID}
		case errors.Is(err, entity.ErrEmailAlreadyExists):
			return &DomainError{Code: "EMAIL_ALREADY_EXISTS", Message: "a user with this email already exists"}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to apply webhook: " + err.Error(), Err: err}
	}

	slog.Info("Webhook applied", "crm_id", input.CRMID, "user_id", user.ID, "last_updated", at)
	return nil
}
