// Package errors provides custom error types for the leafmap system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging across the event bus, the remote invocation
// bridge and the layer tree.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the leafmap system
var (
	// ErrNotFound indicates that a requested entity or resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrNotConnected indicates that no remote counterpart is attached
	ErrNotConnected = errors.New("not connected")

	// ErrClosed indicates use of a closed bridge, loop or session
	ErrClosed = errors.New("closed")

	// ErrNotAttached indicates an operation that requires an attached entity
	ErrNotAttached = errors.New("not attached")

	// ErrRemote indicates the remote counterpart reported a failure
	ErrRemote = errors.New("remote error")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// DuplicateError reports an event-type name already owned by another family.
type DuplicateError struct {
	Name     string
	Existing string
	Incoming string
}

// Error implements the error interface
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("event type %q already registered by family %s (rejected from %s)", e.Name, e.Existing, e.Incoming)
}

// Is implements errors.Is support
func (e *DuplicateError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NewDuplicateError creates a new DuplicateError
func NewDuplicateError(name, existing, incoming string) *DuplicateError {
	return &DuplicateError{Name: name, Existing: existing, Incoming: incoming}
}

// RemoteError represents a failure reported by the remote counterpart
// while executing a named operation.
type RemoteError struct {
	TargetID  string
	Operation string
	Message   string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("remote %s on %s failed: %s", e.Operation, e.TargetID, e.Message)
	}
	return fmt.Sprintf("remote %s failed: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(targetID, operation, message string) *RemoteError {
	return &RemoteError{TargetID: targetID, Operation: operation, Message: message}
}

// EncodeError represents an argument that could not be serialized
// to the wire format.
type EncodeError struct {
	Operation string
	Index     int
	Err       error
}

// Error implements the error interface
func (e *EncodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("encode argument %d of %s: %v", e.Index, e.Operation, e.Err)
	}
	return fmt.Sprintf("encode %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *EncodeError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewEncodeError creates a new EncodeError
func NewEncodeError(operation string, index int, err error) *EncodeError {
	return &EncodeError{Operation: operation, Index: index, Err: err}
}

// DecodeError represents a wire value that could not be decoded into
// the requested type.
type DecodeError struct {
	What string // "result", "payload", "message"
	Type string
	Err  error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %s as %s: %v", e.What, e.Type, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(what, typ string, err error) *DecodeError {
	return &DecodeError{What: what, Type: typ, Err: err}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation string, duration time.Duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close", "connect"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "attach", "detach", "save", "load"
	Resource  string // "session", "snapshot", "layer", "control"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsNotConnected checks if an error indicates a missing remote counterpart
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsRemote checks if an error was reported by the remote counterpart
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapDecode wraps an error as a DecodeError
func WrapDecode(what, typ string, err error) error {
	if err == nil {
		return nil
	}
	return NewDecodeError(what, typ, err)
}
