// Package apperrors holds the error taxonomy shared by the wizard, the submission
// pipeline and moderation, and the single conversion into a user-facing notification.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthRequired         = errors.New("authentication required")
	ErrAdminRequired        = fmt.Errorf("%w: admin role required", ErrAuthRequired)
	ErrAssetUploadFailed    = errors.New("asset upload failed")
	ErrPersistence          = errors.New("persistence failure")
	ErrNotFound             = errors.New("not found")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrStepLocked           = errors.New("step not reachable yet")
)

// Violation is a single field-level rule failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Violations []Violation
}

func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns the first violation, which is what a step transition surfaces.
func (e *ValidationError) First() Violation {
	if len(e.Violations) == 0 {
		return Violation{}
	}
	return e.Violations[0]
}

type AssetUploadError struct {
	Err error
}

func (e *AssetUploadError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAssetUploadFailed, e.Err)
}

func (e *AssetUploadError) Unwrap() []error { return []error{ErrAssetUploadFailed, e.Err} }

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Notification is what the client shows for a failed action.
type Notification struct {
	Kind       string      `json:"kind"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
	Redirect   string      `json:"redirect,omitempty"`
	Status     int         `json:"-"`
}

func Notify(err error) Notification {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "Please fix the highlighted fields"
		if len(verr.Violations) > 0 {
			msg = verr.First().Message
		}
		return Notification{
			Kind:       "validation",
			Message:    msg,
			Violations: verr.Violations,
			Status:     http.StatusUnprocessableEntity,
		}
	case errors.Is(err, ErrAdminRequired):
		return Notification{Kind: "forbidden", Message: "You don't have admin access", Status: http.StatusForbidden}
	case errors.Is(err, ErrAuthRequired):
		return Notification{Kind: "auth", Message: "You must be logged in", Redirect: "/login", Status: http.StatusUnauthorized}
	case errors.Is(err, ErrAssetUploadFailed):
		return Notification{Kind: "upload", Message: "Failed to upload image", Status: http.StatusBadGateway}
	case errors.Is(err, ErrNotFound):
		return Notification{Kind: "not_found", Message: "Not found", Status: http.StatusNotFound}
	case errors.Is(err, ErrTransitionNotAllowed):
		return Notification{Kind: "conflict", Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, ErrStepLocked):
		return Notification{Kind: "step_locked", Message: "Complete the previous steps first", Status: http.StatusConflict}
	case errors.Is(err, ErrPersistence):
		return Notification{Kind: "persistence", Message: "Failed to save, please try again", Status: http.StatusInternalServerError}
	default:
		return Notification{Kind: "error", Message: "Something went wrong", Status: http.StatusInternalServerError}
	}
}
