package usecase

import (
	"errors"
	"fmt"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// TransientRemoteError is a transport failure or an unexpected status from the
// CRM. The retrier absorbs these until its budget runs out.
type TransientRemoteError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransientRemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crm %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("crm %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *TransientRemoteError) Unwrap() error {
	return e.Err
}

// AuthError means no bearer token could be obtained. A sync run that hits it
// is aborted without touching any record.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token acquisition failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PushError means one record could not be created in the CRM.
type PushError struct {
	UserID string
	Err    error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push of user %s failed: %v", e.UserID, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	var vp *ValidationError
	if errors.As(err, &vp) {
		return *vp, true
	}
	return ValidationError{}, false
}
