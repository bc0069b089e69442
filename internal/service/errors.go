package service

import (
	"errors"
	"fmt"
)

// Common service errors. Callers check them with errors.Is; unexpected
// failures are wrapped in a *ServiceError that keeps the original cause.
var (
	// ErrDeckNotFound indicates the referenced deck does not exist.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrCardNotFound indicates the referenced card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrDeckNameTaken indicates another deck already uses the requested name.
	ErrDeckNameTaken = errors.New("deck name already taken")

	// ErrNoCards indicates an AddCards call without any card.
	ErrNoCards = errors.New("no cards to add")
)

// ServiceError wraps errors from a service with the failing operation.
type ServiceError struct {
	Service   string // Service name (e.g., "deck")
	Operation string // Operation that failed (e.g., "create_deck")
	Err       error  // Underlying error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Operation)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError for service and operation.
func NewServiceError(service, operation string, err error) *ServiceError {
	return &ServiceError{Service: service, Operation: operation, Err: err}
}
