package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/crm-sync/internal/entity"
)

func NewCreateUserUseCase(repo entity.UserRepositoryInterface) *CreateUserUseCase {
	return &CreateUserUseCase{Repo: repo}
}

// Execute stores a new user in the pending state. The next sync run pushes it.
func (uc *CreateUserUseCase) Execute(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	if validationErrors := ValidateCreateUserInput(input); len(validationErrors) > 0 {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, e.Error())
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed: " + strings.Join(msgs, ", "),
		}
	}

	user, err := entity.NewUser(
		strings.TrimSpace(input.Name),
		strings.TrimSpace(input.Email),
		strings.TrimSpace(input.Phone),
	)
	if err != nil {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	if err := uc.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, &DomainError{
				Code:    "EMAIL_ALREADY_EXISTS",
				Message: "a user with this email already exists",
			}
		}
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to persist user: " + err.Error(),
			Err:     err,
		}
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}
