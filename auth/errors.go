package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors. Flow errors wrap exactly one of these; test with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("email already registered")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error codes attached to flow errors.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeDependency         = "AUTH_DEPENDENCY"
)

func validationError(msg string) error {
	return oops.Code(CodeValidation).Public(msg).Wrap(ErrValidation)
}

func conflictError(email string) error {
	return oops.Code(CodeEmailTaken).
		With("email", email).
		Public("Email already registered").
		Wrap(ErrConflict)
}

func unauthorizedError() error {
	return oops.Code(CodeUnauthorized).Public("Unauthorized").Wrap(ErrUnauthorized)
}

func invalidCredentialsError(msg string) error {
	return oops.Code(CodeInvalidCredentials).Public(msg).Wrap(ErrInvalidCredentials)
}

func dependencyError(operation string, err error) error {
	return oops.Code(CodeDependency).With("operation", operation).Wrap(err)
}

// PublicMessage returns the client-safe message attached to err, or "" if
// there is none.
func PublicMessage(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Public()
	}
	return ""
}
