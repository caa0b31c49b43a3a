package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEmail indicates the principal's email has no domain part.
	ErrMalformedEmail = errors.New("malformed email address")

	// ErrTenantNotFound indicates no tenant exists for the given subdomain
	// or ID. This is a legitimate absence, never a directory failure.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantSuspended indicates the tenant exists but is not active.
	ErrTenantSuspended = errors.New("tenant is not active")

	// ErrTenantMismatch indicates the credential's tenant claim disagrees
	// with the tenant resolved from the email domain.
	ErrTenantMismatch = errors.New("credential tenant does not match resolved tenant")

	// ErrSubdomainTaken indicates the requested subdomain is already in use.
	ErrSubdomainTaken = errors.New("subdomain already in use")

	// ErrSubdomainReserved indicates the requested subdomain is a reserved word.
	ErrSubdomainReserved = errors.New("subdomain is reserved")

	// ErrSubdomainInvalid indicates the requested subdomain has invalid syntax.
	ErrSubdomainInvalid = errors.New("subdomain may only contain lowercase letters, digits and hyphens")
)

// DirectoryError wraps a failure of the identity directory itself. It is
// deliberately distinct from ErrTenantNotFound: a directory outage must never
// be presented as an invalid tenant.
type DirectoryError struct {
	Op  string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory unavailable during %s: %v", e.Op, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// IsDirectoryUnavailable reports whether err is a directory failure.
func IsDirectoryUnavailable(err error) bool {
	var de *DirectoryError
	return errors.As(err, &de)
}
