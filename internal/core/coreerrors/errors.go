// Package coreerrors defines the error taxonomy shared by the query builder,
// the interpreter, the connectors and the executor.
//
// Every failure is one of three kinds:
//   - Validation: the request is malformed for the schema; no transaction
//     is opened for the operation.
//   - Execution: a graph failed while running; its transaction is rolled
//     back and the operation answers with an error response.
//   - Connector: the backend or transport failed; the whole request aborts.
package coreerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindExecution
	KindConnector
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExecution:
		return "execution"
	case KindConnector:
		return "connector"
	}
	return "unknown"
}

// Error codes, following the Prisma error catalogue.
const (
	CodeConnectionFailed = "P1001"
	CodeTimeout          = "P1008"
	CodeConnectionClosed = "P1017"
	CodeUniqueViolation  = "P2002"
	CodeForeignKey       = "P2003"
	CodeValidation       = "P2009"
	CodeNullConstraint   = "P2011"
	CodeRecordNotFound   = "P2025"
	CodeTransaction      = "P2028"
	CodeWriteConflict    = "P2034"
)

// Sentinel causes. Errors produced by ClassifyError wrap one of these so
// callers can use errors.Is without parsing codes.
var (
	// ErrNotFound is returned when a required record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUniqueConstraint is returned when a unique constraint is violated.
	ErrUniqueConstraint = errors.New("unique constraint violation")

	// ErrForeignKeyConstraint is returned when a foreign key constraint is violated.
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")

	// ErrNullConstraint is returned when a required column receives null.
	ErrNullConstraint = errors.New("null constraint violation")

	// ErrConnectionFailed is returned when the backend cannot be reached.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrWriteConflict is returned when a concurrent transaction won a race.
	ErrWriteConflict = errors.New("write conflict")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timeout")

	// ErrCanceled is returned when an operation is canceled.
	ErrCanceled = errors.New("operation canceled")
)

// Error is a classified engine error carrying a user-facing code.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Model     string
	Field     string
	Meta      map[string]any
	Cause     error
	Retryable bool
}

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validationf creates a P2009 validation error.
func Validationf(format string, args ...any) *Error {
	return New(KindValidation, CodeValidation, fmt.Sprintf(format, args...))
}

// Executionf creates an execution error with the given code.
func Executionf(code, format string, args ...any) *Error {
	return New(KindExecution, code, fmt.Sprintf(format, args...))
}

// Connectorf creates a connector error with the given code.
func Connectorf(code, format string, args ...any) *Error {
	return New(KindConnector, code, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error. Connection-level causes mark the
// error retryable so callers outside the engine can decide to retry.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	e.Retryable = errors.Is(cause, ErrConnectionFailed) ||
		errors.Is(cause, ErrTimeout) ||
		errors.Is(cause, ErrWriteConflict)
	return e
}

// WithModel records the model the error refers to.
func (e *Error) WithModel(model string) *Error {
	e.Model = model
	return e
}

// WithField records the field the error refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithMeta adds a key to the user-facing metadata.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func hasKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsValidation reports whether err is a request validation error.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsExecution reports whether err is a graph execution error.
func IsExecution(err error) bool { return hasKind(err, KindExecution) }

// IsConnector reports whether err is a connector or transport error.
// Context cancellation and deadline errors count as connector errors: both
// abort the request.
func IsConnector(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasKind(err, KindConnector)
}

// IsNotFound reports whether err is a record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ClassifyError maps context, driver and connector errors onto the error
// catalogue. Already classified errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Connectorf(CodeTimeout, "operation timed out").WithCause(fmt.Errorf("%w: %w", ErrTimeout, err))
	case errors.Is(err, context.Canceled):
		return Connectorf(CodeConnectionClosed, "operation canceled").WithCause(fmt.Errorf("%w: %w", ErrCanceled, err))
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "connection refused", "no such host", "bad connection", "broken pipe", "connection reset", "unable to open database"):
		return Connectorf(CodeConnectionFailed, "can't reach database server").WithCause(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	case containsAny(msg, "unique constraint", "duplicate key", "duplicate entry"):
		return Executionf(CodeUniqueViolation, "unique constraint failed").WithCause(fmt.Errorf("%w: %w", ErrUniqueConstraint, err))
	case containsAny(msg, "foreign key constraint", "violates foreign key"):
		return Executionf(CodeForeignKey, "foreign key constraint failed").WithCause(fmt.Errorf("%w: %w", ErrForeignKeyConstraint, err))
	case containsAny(msg, "not null constraint", "not-null constraint", "cannot be null"):
		return Executionf(CodeNullConstraint, "null constraint violation").WithCause(fmt.Errorf("%w: %w", ErrNullConstraint, err))
	case containsAny(msg, "database is locked", "deadlock", "could not serialize"):
		return Executionf(CodeWriteConflict, "transaction failed due to a write conflict or a deadlock").WithCause(fmt.Errorf("%w: %w", ErrWriteConflict, err))
	}
	return Executionf("", "%s", err.Error()).WithCause(err)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
