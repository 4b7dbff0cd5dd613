package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a single location that failed validation.
type ValidationError struct {
	Path   string // JSON pointer into the document, e.g. "/run/2/params"
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("at %q: %s", e.Path, e.Reason)
}

// Step returns the index of the run entry the error is located in, or -1.
func (e *ValidationError) Step() int {
	parts := strings.Split(strings.TrimPrefix(e.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "run" {
		return -1
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1
	}
	return i
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
