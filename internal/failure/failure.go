package failure

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds of the screening pipeline.
var (
	// ErrExtraction is returned when a document can not be turned into a parsed resume.
	ErrExtraction = errors.New("extraction failed")

	// ErrConfiguration is returned when a model, strategy or credential is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrScoringProvider is returned when a scoring backend fails at runtime.
	ErrScoringProvider = errors.New("scoring provider failed")

	// ErrTimeout is returned when a remote scoring call exceeds its deadline.
	ErrTimeout = errors.New("scoring provider timed out")

	// ErrPersistence is returned when a parsed resume can not be saved.
	ErrPersistence = errors.New("persistence failed")
)

// Error carries the failure kind, the operation that failed and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.Error()
	}
}

// Is reports whether the target is the kind of this error. A timeout is also
// a scoring provider failure.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrTimeout && target == ErrScoringProvider
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extraction creates an extraction error for the operation.
func Extraction(op string, err error) *Error {
	return &Error{Kind: ErrExtraction, Op: op, Err: err}
}

// Configuration creates a configuration error for the operation.
func Configuration(op string, err error) *Error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: err}
}

// Provider creates a scoring provider error for the operation.
func Provider(op string, err error) *Error {
	return &Error{Kind: ErrScoringProvider, Op: op, Err: err}
}

// Timeout creates a timeout error for the operation.
func Timeout(op string, err error) *Error {
	return &Error{Kind: ErrTimeout, Op: op, Err: err}
}

// Persistence creates a persistence error for the operation.
func Persistence(op string, err error) *Error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// KindOf returns a short name of the failure kind, suitable for metadata and logs.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrScoringProvider):
		return "scoring_provider"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}
