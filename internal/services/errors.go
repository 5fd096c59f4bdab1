package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// deactivated accounts alike.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrTenderNotFound     = errors.New("tender not found")
	ErrDocumentNotFound   = errors.New("document not found")
)

// ValidationError rejects a request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}
