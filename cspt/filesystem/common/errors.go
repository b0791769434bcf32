package common

import (
	"errors"
	"fmt"
)

// Structural errors. All of them are fatal to the running command and are
// wrapped with the offending path(s) before being returned.
var (
	ErrPathEmpty            = errors.New("path cannot be empty")
	ErrNotAFileOrDirectory  = errors.New("path does not point to a file nor to a directory")
	ErrNoProject            = errors.New("no project file found")
	ErrAmbiguousProject     = errors.New("more than one project file found")
	ErrDestinationExists    = errors.New("target directory already exists")
	ErrDestinationInside    = errors.New("target directory lies inside the moved project directory")
	ErrNestedProject        = errors.New("the to-be-moved project contains nested projects")
	ErrOutsideSolution      = errors.New("can not reference projects outside of solution directory")
	ErrNameCollision        = errors.New("project path used as directory")
	ErrUnsupportedComponent = errors.New("unexpected path component")
)

// ErrorUtils provides common error handling utilities
type ErrorUtils struct{}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils() *ErrorUtils {
	return &ErrorUtils{}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}

// PathError attaches one or more paths to a sentinel error.
func PathError(sentinel error, paths ...string) error {
	switch len(paths) {
	case 0:
		return sentinel
	case 1:
		return fmt.Errorf("%w: %s", sentinel, paths[0])
	default:
		return fmt.Errorf("%w: %q", sentinel, paths)
	}
}
