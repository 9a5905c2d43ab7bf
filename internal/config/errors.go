package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCatalogBaseURL is wrapped by validation failures of CatalogBaseUrl.
// The host refuses to start without a usable catalog address.
var ErrCatalogBaseURL = errors.New("config: CatalogBaseUrl missing or malformed")

// ValidationError collects multiple validation errors.
type ValidationError struct {
	cause  error
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "config validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("config validation failed: %s", e.Errors[0])
	}
	return fmt.Sprintf("config validation failed with %d errors:\n  - %s",
		len(e.Errors), strings.Join(e.Errors, "\n  - "))
}

// Unwrap exposes the sentinel recorded by AddCause.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Addf appends a formatted error message to the validation errors.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Add appends an error message to the validation errors.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// AddCause appends msg and remembers cause for errors.Is. The first cause wins.
func (e *ValidationError) AddCause(cause error, msg string) {
	if e.cause == nil {
		e.cause = cause
	}
	e.Add(msg)
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns the ValidationError as an error if there are errors, otherwise nil.
func (e *ValidationError) ToError() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
