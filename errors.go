package svcwrap

import (
	"errors"
	"fmt"
)

// Common errors returned by svcwrap operations. Platform variants wrap the
// native error with one of these so callers can match with errors.Is.
var (
	// ErrEmptyName indicates a descriptor was built without a service name
	ErrEmptyName = errors.New("svcwrap: empty service name")

	// ErrServiceExists indicates a registration with the same name is already present
	ErrServiceExists = errors.New("svcwrap: service already exists")

	// ErrServiceNotFound indicates no registration exists for the name
	ErrServiceNotFound = errors.New("svcwrap: service does not exist")

	// ErrMarkedForDelete indicates the name is still held by a registration
	// that has been deleted but not yet removed by the platform
	ErrMarkedForDelete = errors.New("svcwrap: service marked for deletion")

	// ErrServiceNotActive indicates a stop was requested for a stopped service
	ErrServiceNotActive = errors.New("svcwrap: service not active")

	// ErrServiceRunning indicates a start was requested for a running service
	ErrServiceRunning = errors.New("svcwrap: service already running")

	// ErrAccessDenied indicates the handle lacks the rights for the request
	ErrAccessDenied = errors.New("svcwrap: access denied")

	// ErrUnsupported indicates no service manager is available on this platform
	ErrUnsupported = errors.New("svcwrap: platform not supported")
)

// Kind classifies an OpError
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that are not OpErrors
	KindUnknown Kind = iota
	// KindIO is a filesystem path resolution failure
	KindIO
	// KindPlatform is any failure reported by the service manager
	KindPlatform
	// KindConfig is a missing or invalid configuration value
	KindConfig
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPlatform:
		return "platform"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// OpError is the single error type returned by Build, LoadConfig and the
// Controller operations
type OpError struct {
	// Kind classifies the failure
	Kind Kind
	// Op is the step that failed
	Op Operation
	// Name is the service name, if known
	Name string
	// Path is the filesystem path involved, if any
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	msg := fmt.Sprintf("svcwrap %s %s", e.Kind, e.Op)
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first OpError in err's chain
func KindOf(err error) Kind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries an OpError of kind k
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// platformError maps a failure reported by the service manager
func platformError(op Operation, name string, err error) error {
	return &OpError{Kind: KindPlatform, Op: op, Name: name, Err: err}
}

// ioError maps a path resolution failure
func ioError(op Operation, name, path string, err error) error {
	return &OpError{Kind: KindIO, Op: op, Name: name, Path: path, Err: err}
}

// configError maps a configuration failure
func configError(op Operation, err error) error {
	return &OpError{Kind: KindConfig, Op: op, Err: err}
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
