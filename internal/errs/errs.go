// Package errs defines the error taxonomy shared by the reconciliation
// pipeline. Each typed error matches a sentinel through errors.Is so callers
// can branch without type assertions.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication marks a failed identity check against Toggl.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRemoteExecution marks a failed apply of a single operation.
	ErrRemoteExecution = errors.New("remote execution failed")

	// ErrDataShape marks a malformed time entry.
	ErrDataShape = errors.New("malformed time entry")
)

// ConfigurationError reports a required field that is absent or invalid.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return "config: " + e.Message
}

// Is implements errors.Is support
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// AuthenticationError wraps the response of a rejected /me request.
type AuthenticationError struct {
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not authenticate: %v", e.Err)
	}
	return fmt.Sprintf("could not authenticate: status %d", e.StatusCode)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// RemoteExecutionError identifies the operation that aborted a batch.
type RemoteExecutionError struct {
	Index int    // position in the batch, zero based
	Op    string // "modify" or "insert"
	Err   error
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("operation %d (%s) failed: %v", e.Index, e.Op, e.Err)
}

func (e *RemoteExecutionError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *RemoteExecutionError) Is(target error) bool { return target == ErrRemoteExecution }

// DataShapeError describes why an entry was left out of day aggregation.
type DataShapeError struct {
	EntryID int64
	Reason  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("entry %d: %s", e.EntryID, e.Reason)
}

// Is implements errors.Is support
func (e *DataShapeError) Is(target error) bool { return target == ErrDataShape }
