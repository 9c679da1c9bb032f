package errors

import (
	"errors"
	"fmt"
)

// Common error types for the tenant server
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUserNotFound       = errors.New("user not found")

	// Tenant errors
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrNotAMember        = errors.New("user is not a member of the tenant")
	ErrNoTenantSelected  = errors.New("no tenant selected")
	ErrDuplicateDocument = errors.New("tenant document already registered")
	ErrOrphanCompany     = errors.New("company created without an admin membership")
	ErrForbidden         = errors.New("forbidden")

	// Storage errors
	ErrVersionConflict = errors.New("version conflict")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrNotFound        = errors.New("not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Collaborator errors
	ErrMailDelivery = errors.New("mail delivery failed")

	// General errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
