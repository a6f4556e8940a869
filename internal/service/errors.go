package service

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors. Handlers translate these into response statuses; the
// messages are stable and caller-facing.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrExpiredSecret      = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("please verify your email before logging in")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrNotAuthorized      = errors.New("you are not authorized to perform this action")
	ErrRateLimited        = errors.New("too many requests, try again later")
)

// ValidationError carries per-field messages back to the caller.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, message := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
