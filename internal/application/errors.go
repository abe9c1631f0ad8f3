package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login data or a token cannot be verified.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrNoActiveSite is returned when the principal has no site assigned.
	ErrNoActiveSite = errors.New("application: no active site selected")
	// ErrAlreadyInside is returned when a person already has an open movement at the site.
	ErrAlreadyInside = errors.New("application: person already inside")
	// ErrAlreadyExited is returned when an exit is registered for a closed movement.
	ErrAlreadyExited = errors.New("application: movement already exited")
	// ErrAlreadyDeleted is returned when a movement was soft-deleted before.
	ErrAlreadyDeleted = errors.New("application: movement already deleted")
	// ErrPersonInside is returned when deleting a person that has an open movement.
	ErrPersonInside = errors.New("application: person has an open movement")
	// ErrSiteInUse is returned when deleting a site that still holds people.
	ErrSiteInUse = errors.New("application: site still has people")
	// ErrPersistence wraps backend failures the application does not classify further.
	ErrPersistence = errors.New("application: persistence failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// persistenceError hides the backend error behind ErrPersistence while keeping
// its text for logs.
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
