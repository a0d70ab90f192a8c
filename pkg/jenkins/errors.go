package jenkins

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by this module that belongs to one of
// these kinds satisfies errors.Is against the matching sentinel.
var (
	ErrNotFound          = errors.New("not found")
	ErrNoData            = errors.New("no data")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrBrokenArtifact    = errors.New("broken artifact")
	ErrContractViolation = errors.New("contract violation")
)

// Operation errors.
var (
	ErrCreationFailed    = errors.New("remote system did not create the entity")
	ErrNotScheduled      = errors.New("build was not scheduled")
	ErrNotBuiltYet       = errors.New("queue item has not started building")
	ErrNoResults         = errors.New("build has no test results")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrBaseURLRequired   = errors.New("base URL is required")
	ErrConfigRequired    = errors.New("config is required")
	ErrSkipTLSOnlyInDev  = errors.New("skipping TLS verification is only allowed in development mode")
	ErrTimeout           = errors.New("timed out waiting for remote state")
	ErrUnknownLaunchType = errors.New("unknown node launch type")
)

// HTTPError is a non-successful response from the remote server.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Payload    string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
	if e.Payload != "" {
		msg += fmt.Sprintf(" (payload: %s)", truncate(e.Payload, 256))
	}

	if e.Body != "" {
		msg += ": " + truncate(e.Body, 512)
	}

	return msg
}

// Is classifies the status code into the error kinds.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrNotAuthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

// NotFoundError reports an entity absent from the current snapshot.
type NotFoundError struct {
	Kind string
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MissingFieldError reports a snapshot that lacks a requested field.
type MissingFieldError struct {
	Entity string
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	msg := "field " + e.Path + " missing"
	if e.Entity != "" {
		msg = e.Entity + ": " + msg
	}

	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}

	return msg
}

// Is reports whether target is ErrNoData.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrNoData
}

// ContractViolation builds a contract-violation error with context.
func ContractViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotAuthorized checks if the error is a 401/403 class failure.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsNoData checks if the error reports a missing snapshot field.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsContractViolation checks if the error is a local usage error.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}

// IsTransient reports whether retrying the failed operation could succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	return !IsNotFound(err) && !IsNotAuthorized(err) && !IsNoData(err) && !IsContractViolation(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
