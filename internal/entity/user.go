package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// User is the only persisted entity. CRMID stays nil until a push succeeds.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	SyncStatus  SyncStatus `json:"sync_status"`
	CRMID       *string    `json:"crm_id"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Factory
func NewUser(name, email, phone string) (*User, error) {
	user := &User{
		ID:          uuid.New().String(),
		Name:        name,
		Email:       email,
		Phone:       phone,
		SyncStatus:  SyncStatusPending,
		LastUpdated: time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

func (u *User) Validate() error {
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}

// UserPatch holds the subset of contact fields a CRM webhook may overwrite.
type UserPatch struct {
	Name  *string
	Email *string
	Phone *string
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByCRMID(ctx context.Context, crmID string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByStatus(ctx context.Context, status SyncStatus) ([]*User, error)
	MarkSynced(ctx context.Context, id, crmID string) error
	MarkFailed(ctx context.Context, id string) error
	ApplyPatch(ctx context.Context, id string, patch UserPatch, at time.Time) error
}
