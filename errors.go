package users

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
	ErrNicknameTaken   = errors.New("nickname already taken")
	ErrDependency      = errors.New("dependency failure")
)

// DependencyError wraps a failure of the store or the avatar relay.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDependency, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// Dependency wraps err unless it already is one of the domain errors.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range []error{ErrValidation, ErrProfileNotFound, ErrProfileExists,
		ErrNicknameTaken, ErrDependency} {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return &DependencyError{Op: op, Err: err}
}

// ValidationError carries the reason of a rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}
