package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected domain conditions. Engines and services
// return these instead of panicking; controllers map them to responses.
var (
	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent writer won the race; retry or report.
	ErrConflict = errors.New("concurrent update conflict")

	// Reply tree insertion failures.
	ErrParentNotFound     = errors.New("parent reply not found")
	ErrParentInactive     = errors.New("parent reply has been deleted")
	ErrParentPostMismatch = errors.New("parent reply belongs to a different post")
	// ErrTargetNotFound means a path index walked off the tree.
	ErrTargetNotFound = errors.New("target reply not found")
)

// ForbiddenError carries the human-readable denial reason from policy or
// transition checks.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// Forbiddenf builds a ForbiddenError with a formatted reason.
func Forbiddenf(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidRequestError flags malformed or incomplete input, e.g. publishing
// without a title.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

// Invalidf builds an InvalidRequestError with a formatted reason.
func Invalidf(format string, args ...any) *InvalidRequestError {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// DependencyError wraps a timeout or failure from an external collaborator.
// Orchestration decides per call whether it degrades or propagates.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// IsForbidden reports whether err is a policy/transition denial.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// IsInvalid reports whether err is a malformed-input error.
func IsInvalid(err error) bool {
	var ie *InvalidRequestError
	return errors.As(err, &ie)
}

// IsDependency reports whether err originated in an external collaborator.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
