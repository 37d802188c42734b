package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/usecase"
)

type UserCreator interface {
	Execute(ctx context.Context, input usecase.CreateUserInput) (*entity.User, error)
}

type UserHandler struct {
	CreateUserUC UserCreator
	Repo         entity.UserRepositoryInterface
}

func NewUserHandler(uc UserCreator, repo entity.UserRepositoryInterface) *UserHandler {
	return &UserHandler{
		CreateUserUC: uc,
		Repo:         repo,
	}
}

// Create (POST /users)
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	user, err := h.CreateUserUC.Execute(r.Context(), input)
	if err != nil {
		var de *usecase.DomainError
		if errors.As(err, &de) {
			status := http.StatusBadRequest
			if de.Code == "EMAIL_ALREADY_EXISTS" {
				status = http.StatusConflict
			}
			writeErrorResponse(w, status, de.Code, de.Message)
			return
		}
		slog.Error("Failed to create user", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Get (GET /users/{id})
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.Repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("Failed to retrieve user", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// List (GET /users)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		users []*entity.User
		err   error
	)

	if status := entity.SyncStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "status must be one of pending, synced, failed")
			return
		}
		users, err = h.Repo.ListByStatus(r.Context(), status)
	} else {
		users, err = h.Repo.List(r.Context())
	}
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}
